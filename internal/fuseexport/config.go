package fuseexport

import "time"

// Config controls a single FUSE export of a VFS.
type Config struct {
	MountPoint string `yaml:"mount_point"`
	ReadOnly   bool   `yaml:"read_only"`

	Options     MountOptions `yaml:"options"`
	Permissions Permissions  `yaml:"permissions"`

	// AttrCacheTTL bounds how long the kernel may cache an Entry before
	// re-querying the VFS core.
	AttrCacheTTL time.Duration `yaml:"attr_cache_ttl"`
}

// MountOptions are the FUSE mount options common to both bindings.
type MountOptions struct {
	AllowOther   bool   `yaml:"allow_other"`
	DefaultPerms bool   `yaml:"default_permissions"`
	Debug        bool   `yaml:"debug"`
	FSName       string `yaml:"fsname"`
	Subtype      string `yaml:"subtype"`
	MaxWrite     uint32 `yaml:"max_write"`
}

// Permissions sets the uid/gid/mode every exported Entry reports, since
// the VFS core carries only a small Attr bitset rather than POSIX
// ownership and permission bits.
type Permissions struct {
	UID      uint32 `yaml:"uid"`
	GID      uint32 `yaml:"gid"`
	FileMode uint32 `yaml:"file_mode"`
	DirMode  uint32 `yaml:"dir_mode"`
}

// DefaultConfig returns a Config suitable for mounting at mountPoint with
// no special options.
func DefaultConfig(mountPoint string) *Config {
	return &Config{
		MountPoint: mountPoint,
		Options: MountOptions{
			FSName:   "vfscore",
			Subtype:  "vfscore",
			MaxWrite: 128 * 1024,
		},
		Permissions: Permissions{
			FileMode: 0644,
			DirMode:  0755,
		},
		AttrCacheTTL: time.Second,
	}
}

// Stats reports counters for a live export, gathered from the
// underlying binding's operation counts.
type Stats struct {
	Lookups      int64
	Opens        int64
	Reads        int64
	Writes       int64
	BytesRead    int64
	BytesWritten int64
	Errors       int64
}

// Exporter mounts and unmounts a vfs.VFS as an OS-level filesystem. The
// concrete type is chosen per-platform by NewExporter.
type Exporter interface {
	Mount() error
	Unmount() error
	IsMounted() bool
	Stats() Stats
}
