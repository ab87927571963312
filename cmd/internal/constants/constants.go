package constants

const (
	// MaxDirectUploadSize is the artifact size in bytes from which on an
	// artifact is staged at external storage instead of being attached to the
	// webhook call directly, webhook endpoints reject larger attachments
	MaxDirectUploadSize = 23 * 1024 * 1024

	// DefaultBackupFolder is the folder where backup archives are placed in
	// when nothing else was configured
	DefaultBackupFolder = "./backups"

	// DefaultCooldownMinutes is the cadence between two backup cycles when the
	// configured cooldown duration cannot be parsed
	DefaultCooldownMinutes = 60

	// ArchiveBaseName is the base name of a backup archive, a timestamp and
	// the archiver's extension get appended to it
	ArchiveBaseName = "backup"
)
