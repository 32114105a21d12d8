package dbf

import (
	"strings"

	"github.com/axgle/mahonia"
)

const defaultCharset = "utf-8"

// languageDrivers maps the header language driver id to a charset name
// understood by mahonia. Unlisted ids fall back to defaultCharset.
var languageDrivers = map[byte]string{
	0x03: "windows-1252",
	0x57: "windows-1252",
	0x58: "windows-1252",
	0x59: "windows-1252",
	0x64: "ibm852",
	0x65: "ibm866",
	0x78: "big5",
	0x7A: "gbk",
	0x7B: "shift_jis",
	0x7D: "windows-1255",
	0x7E: "windows-1256",
	0xC8: "windows-1250",
	0xC9: "windows-1251",
	0xCA: "windows-1254",
	0xCB: "windows-1253",
}

func newDecoder(name string) (mahonia.Decoder, error) {
	d := mahonia.NewDecoder(strings.TrimSpace(name))
	if d == nil {
		return nil, ErrUnknownCharset
	}
	return d, nil
}

func charsetForDriver(id byte) string {
	if name, ok := languageDrivers[id]; ok {
		return name
	}
	return defaultCharset
}
