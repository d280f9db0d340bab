package stubservice

import (
	"encoding/base64"
	"errors"
	"strings"
)

var errNotBase64 = errors.New("baseString is neither a data URI nor base64")

// decodeBaseString accepts "data:<mime>;base64,<payload>" or a bare base64 payload and returns
// the bytes plus the MIME type announced by the data URI, if any.
func decodeBaseString(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	var declared string
	if strings.HasPrefix(s, "data:") {
		idx := strings.IndexByte(s, ',')
		if idx < 0 {
			return nil, "", errNotBase64
		}
		meta := s[len("data:"):idx]
		if !strings.HasSuffix(meta, ";base64") {
			return nil, "", errNotBase64
		}
		declared = strings.TrimSuffix(meta, ";base64")
		s = s[idx+1:]
	}

	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if data, err := enc.DecodeString(s); err == nil && len(data) > 0 {
			return data, declared, nil
		}
	}
	return nil, "", errNotBase64
}
