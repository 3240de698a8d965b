package corpus

import (
	"strconv"
	"strings"

	"github.com/weiihann/qrbench/decoder"
)

// ParseGroundTruth interprets the content of an image's sidecar file.
//
// Detection sidecars start with a '#' comment or carry a SETS marker, then
// hold one code outline per line as "x1 y1 x2 y2 x3 y3 x4 y4". Anything else
// is the expected payload, trimmed and with CRLF line endings folded to LF.
func ParseGroundTruth(content string) (string, [][]decoder.Point) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", nil
	}

	if !strings.HasPrefix(trimmed, "#") && !hasSetsMarker(trimmed) {
		return NormalizeText(trimmed), nil
	}

	var quads [][]decoder.Point

	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "SETS" || strings.HasPrefix(line, "#") {
			continue
		}

		if quad, ok := parseQuad(strings.Fields(line)); ok {
			quads = append(quads, quad)
		}
	}

	return "", quads
}

// NormalizeText folds CRLF to LF and trims surrounding whitespace, so
// payloads compare equal regardless of how the sidecar was saved.
func NormalizeText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
}

func hasSetsMarker(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "SETS" {
			return true
		}
	}

	return false
}

func parseQuad(fields []string) ([]decoder.Point, bool) {
	if len(fields) < 8 {
		return nil, false
	}

	quad := make([]decoder.Point, 0, 4)

	for i := 0; i < 4; i++ {
		x, errX := strconv.ParseFloat(fields[2*i], 64)
		y, errY := strconv.ParseFloat(fields[2*i+1], 64)
		if errX != nil || errY != nil {
			return nil, false
		}

		quad = append(quad, decoder.Point{X: x, Y: y})
	}

	return quad, true
}
