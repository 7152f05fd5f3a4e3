package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const (
	MimeAudio       = "audio/"
	MimeVideo       = "video/"
	MimeOctetStream = "application/octet-stream"
	MimeXLSX        = "application/zip"

	// 录音文件大小上限 20MB
	MaxRecordingBytes = 20 << 20
	// 导入表格大小上限 10MB
	MaxWorkbookBytes = 10 << 20
)

var (
	AllowedAudioExtensions = []string{".mp3", ".wav", ".m4a", ".ogg", ".webm", ".aac"}
)

// 上下文键
const (
	ContextUserKey = "user"
)
