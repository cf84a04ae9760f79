package handle

import (
	"fmt"
	"strings"
)

// injectSimulcastLines rewrites the first video m-section of sdp to
// advertise layers via a=rid/a=simulcast, the fallback path spec §4.4.4
// names for when a Sender rejects SetEncodings directly.
func injectSimulcastLines(sdp string, layers []EncodingLayer) string {
	if len(layers) == 0 {
		return sdp
	}

	lines := strings.Split(sdp, "\r\n")
	videoStart := -1
	videoEnd := len(lines)
	for i, line := range lines {
		if videoStart == -1 && strings.HasPrefix(line, "m=video") {
			videoStart = i
			continue
		}
		if videoStart != -1 && strings.HasPrefix(line, "m=") && i > videoStart {
			videoEnd = i
			break
		}
	}
	if videoStart == -1 {
		return sdp
	}

	rids := make([]string, 0, len(layers))
	extra := make([]string, 0, len(layers)+1)
	for _, l := range layers {
		extra = append(extra, fmt.Sprintf("a=rid:%s send", l.RID))
		rids = append(rids, l.RID)
	}
	extra = append(extra, "a=simulcast:send "+strings.Join(rids, ";"))

	out := make([]string, 0, len(lines)+len(extra))
	out = append(out, lines[:videoEnd]...)
	out = append(out, extra...)
	out = append(out, lines[videoEnd:]...)
	return strings.Join(out, "\r\n")
}

