package feedfetch

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// convertToUTF8 re-encodes a feed body that declares ISO-8859-1, the one
// non-UTF-8 encoding still common enough in the wild to be worth handling
// explicitly before handing the body to gofeed's XML decoder.
func convertToUTF8(body []byte) ([]byte, error) {
	content := string(body)
	declaresLatin1 := strings.Contains(content, `encoding="ISO-8859-1"`) || strings.Contains(content, `encoding='ISO-8859-1'`)
	if !declaresLatin1 {
		return body, nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("convert ISO-8859-1 to UTF-8: %w", err)
	}

	out := string(decoded)
	out = strings.Replace(out, `encoding="ISO-8859-1"`, `encoding="UTF-8"`, 1)
	out = strings.Replace(out, `encoding='ISO-8859-1'`, `encoding='UTF-8'`, 1)
	return []byte(out), nil
}
