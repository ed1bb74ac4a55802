package config

import "fmt"

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Storage.validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Import.validate(); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if c.Server.UploadsPerMinute <= 0 {
		return fmt.Errorf("server: uploads_per_minute must be > 0 (got %d)", c.Server.UploadsPerMinute)
	}
	return nil
}

func (s *StorageConfig) validate() error {
	if s.UploadDir == "" {
		return fmt.Errorf("upload_dir must not be empty")
	}
	if s.MaxUploadSize <= 0 {
		return fmt.Errorf("max_upload_size must be > 0 (got %d)", s.MaxUploadSize)
	}
	return nil
}

func (i *ImportConfig) validate() error {
	if i.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", i.BatchSize)
	}
	if i.Workers <= 0 {
		return fmt.Errorf("workers must be > 0 (got %d)", i.Workers)
	}
	if i.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be > 0 (got %d)", i.QueueSize)
	}
	if i.MaxErrorLength <= 0 {
		return fmt.Errorf("max_error_length must be > 0 (got %d)", i.MaxErrorLength)
	}
	return nil
}
