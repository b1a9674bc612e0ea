package mime

import (
	"fmt"
	"path/filepath"
	"strings"
)

// TransferEncoding is a Content-Transfer-Encoding supported by the codec.
type TransferEncoding int

const (
	Base64 TransferEncoding = iota
	SevenBit
	QuotedPrintable
)

var transferEncodingNames = [...]string{
	Base64:          "base64",
	SevenBit:        "7bit",
	QuotedPrintable: "quoted-printable",
}

func (e TransferEncoding) String() string {
	if e < 0 || int(e) >= len(transferEncodingNames) {
		return fmt.Sprintf("TransferEncoding(%d)", int(e))
	}
	return transferEncodingNames[e]
}

// ParseTransferEncoding maps a header value such as "7bit" to a TransferEncoding.
func ParseTransferEncoding(s string) (TransferEncoding, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range transferEncodingNames {
		if name == s {
			return TransferEncoding(i), nil
		}
	}
	return 0, fmt.Errorf("unknown transfer encoding %q", s)
}

// ContentType is one of the media types the codec can label a body or part with.
type ContentType int

const (
	TextHTML ContentType = iota
	TextPlain
	MultipartMixed
	MultipartAlternative
	ImageJPEG
	ImageGIF
	ImagePNG
	ApplicationPDF
	ApplicationZip
	ApplicationRar
	VideoMP4
	ApplicationPPTX
	ApplicationWord
	ApplicationExcel
	ApplicationOctetStream
)

var contentTypeNames = [...]string{
	TextHTML:               "text/html",
	TextPlain:              "text/plain",
	MultipartMixed:         "multipart/mixed",
	MultipartAlternative:   "multipart/alternative",
	ImageJPEG:              "image/jpeg",
	ImageGIF:               "image/gif",
	ImagePNG:               "image/png",
	ApplicationPDF:         "application/pdf",
	ApplicationZip:         "application/zip",
	ApplicationRar:         "application/rar",
	VideoMP4:               "video/mp4",
	ApplicationPPTX:        "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	ApplicationWord:        "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	ApplicationExcel:       "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	ApplicationOctetStream: "application/octet-stream",
}

func (t ContentType) String() string {
	if t < 0 || int(t) >= len(contentTypeNames) {
		return fmt.Sprintf("ContentType(%d)", int(t))
	}
	return contentTypeNames[t]
}

// IsMultipart reports whether the type carries boundary-delimited parts.
func (t ContentType) IsMultipart() bool {
	return t == MultipartMixed || t == MultipartAlternative
}

// ParseContentType maps a media type such as "text/plain" to a ContentType.
func ParseContentType(s string) (ContentType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range contentTypeNames {
		if name == s {
			return ContentType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown content type %q", s)
}

// ContentTypeFromFilename guesses the content type of an attachment from its
// extension, falling back to application/octet-stream.
func ContentTypeFromFilename(name string) ContentType {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpeg", ".jpg":
		return ImageJPEG
	case ".mp4", ".m4a":
		return VideoMP4
	case ".gif":
		return ImageGIF
	case ".png":
		return ImagePNG
	case ".pdf":
		return ApplicationPDF
	case ".rar":
		return ApplicationRar
	case ".zip":
		return ApplicationZip
	case ".docx":
		return ApplicationWord
	case ".pptx":
		return ApplicationPPTX
	case ".xls":
		return ApplicationExcel
	case ".c", ".rs", ".cpp", ".h", ".txt", ".toml":
		return TextPlain
	default:
		return ApplicationOctetStream
	}
}
