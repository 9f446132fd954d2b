package security

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"onebox/backend/internal/domain"
)

// ErrAttachmentRejected 附件未通过安全检查
var ErrAttachmentRejected = errors.New("attachment rejected")

// DefaultMaxAttachmentSize 单个附件大小上限
const DefaultMaxAttachmentSize = 10 * 1024 * 1024

// executableTypes 按内容识别出的可执行文件类型
var executableTypes = []string{
	"application/vnd.microsoft.portable-executable",
	"application/x-elf",
	"application/x-mach-binary",
	"application/java-archive",
}

// AttachmentPolicy 外发附件安全检查器
type AttachmentPolicy struct {
	// 最大文件大小（字节）
	maxFileSize int64

	// 危险文件扩展名
	dangerousExtensions map[string]bool
}

// NewAttachmentPolicy 创建附件检查器，maxFileSize <= 0 时使用默认上限
func NewAttachmentPolicy(maxFileSize int64) *AttachmentPolicy {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxAttachmentSize
	}
	return &AttachmentPolicy{
		maxFileSize: maxFileSize,
		dangerousExtensions: map[string]bool{
			".exe": true,
			".bat": true,
			".cmd": true,
			".scr": true,
			".pif": true,
			".com": true,
			".vbs": true,
			".js":  true,
			".jar": true,
			".msi": true,
			".ps1": true,
		},
	}
}

// Check 检查附件。ContentType 为空时按内容识别并回填。
func (p *AttachmentPolicy) Check(att *domain.OutgoingAttachment) error {
	name := strings.TrimSpace(att.Filename)
	if name == "" {
		return reject("missing filename")
	}

	ext := strings.ToLower(filepath.Ext(name))
	if p.dangerousExtensions[ext] {
		return reject("dangerous file extension " + ext)
	}

	if int64(len(att.Content)) > p.maxFileSize {
		return reject(fmt.Sprintf("file exceeds %d bytes", p.maxFileSize))
	}

	detected := mimetype.Detect(att.Content)
	for m := detected; m != nil; m = m.Parent() {
		for _, t := range executableTypes {
			if m.Is(t) {
				return reject("executable content detected")
			}
		}
	}

	if att.ContentType == "" {
		att.ContentType = detected.String()
	}
	mediaType, _, err := mime.ParseMediaType(att.ContentType)
	if err != nil {
		return reject("invalid content type " + att.ContentType)
	}

	// 文本附件里的脚本
	if strings.HasPrefix(mediaType, "text/") {
		lower := strings.ToLower(string(att.Content))
		if strings.Contains(lower, "<script") || strings.Contains(lower, "javascript:") {
			return reject("script detected in text attachment")
		}
	}

	return nil
}

func reject(reason string) error {
	return fmt.Errorf("%w: %s", ErrAttachmentRejected, reason)
}
