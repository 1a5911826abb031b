package s3fs

import "time"

// Config configures an S3 Backend (grounded on the teacher's own S3
// backend Config, trimmed to the connection settings this backend
// actually uses: region, endpoint, path-style addressing and request
// timeout).
type Config struct {
	Region         string        `yaml:"region"`
	Endpoint       string        `yaml:"endpoint"`
	ForcePathStyle bool          `yaml:"force_path_style"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}
