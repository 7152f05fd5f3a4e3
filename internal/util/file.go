package util

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// ValidateMimeType 深度校验文件 MIME 类型
// allowedTypes: 允许的 MIME 前缀或完整类型，如 "audio/", "video/webm"
func ValidateMimeType(reader io.Reader, allowedTypes []string) (string, error) {
	buffer := make([]byte, 512)
	n, err := reader.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	// 检测 MIME 类型
	mimeType := http.DetectContentType(buffer[:n])

	for _, allowed := range allowedTypes {
		if strings.HasPrefix(mimeType, allowed) || mimeType == allowed {
			return mimeType, nil
		}
	}

	return mimeType, errors.New("invalid file type: " + mimeType)
}

// IsAudio 检测是否为音频（浏览器录音常以 webm 容器上传）
func IsAudio(mimeType string) bool {
	return strings.HasPrefix(mimeType, MimeAudio) || mimeType == "video/webm" || mimeType == "application/ogg"
}

// HasAllowedExtension 扩展名白名单校验，大小写不敏感
func HasAllowedExtension(filename string, allowed []string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}
