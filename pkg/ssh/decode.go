package ssh

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

var knownEncodings = map[string]encoding.Encoding{
	"gb18030":     simplifiedchinese.GB18030,
	"gbk":         simplifiedchinese.GBK,
	"big5":        traditionalchinese.Big5,
	"windows1252": charmap.Windows1252,
	"iso8859_1":   charmap.ISO8859_1,
}

// DefaultEncodings 输出不是 UTF-8 时依次尝试的编码
var DefaultEncodings = []string{"windows1252", "iso8859_1"}

// decoder 把设备输出转换为 UTF-8（banner/描述字段可能含非 UTF-8 字节）
type decoder struct {
	encs []encoding.Encoding
}

func newDecoder(names []string) *decoder {
	if len(names) == 0 {
		names = DefaultEncodings
	}
	d := &decoder{}
	for _, n := range names {
		if enc, ok := knownEncodings[strings.ToLower(strings.TrimSpace(n))]; ok {
			d.encs = append(d.encs, enc)
		}
	}
	return d
}

func (d *decoder) String(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if utf8.Valid(b) {
		return string(b)
	}
	for _, enc := range d.encs {
		decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(b), enc.NewDecoder()))
		if err == nil && utf8.Valid(decoded) {
			return string(decoded)
		}
	}
	return string(b)
}
