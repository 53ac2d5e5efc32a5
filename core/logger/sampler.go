package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// sampler passes n of every d calls. A zero ratio passes everything.
type sampler struct {
	ratio atomic.Uint64 // n<<32 | d
	seq   atomic.Uint64
}

func (s *sampler) set(n, d int) {
	s.seq.Store(0)
	if n <= 0 || d <= 0 {
		s.ratio.Store(0)
		return
	}
	n = min(n, d)
	s.ratio.Store(uint64(uint32(n))<<32 | uint64(uint32(d)))
}

func (s *sampler) allow() bool {
	r := s.ratio.Load()
	n, d := r>>32, r&0xffffffff
	if d == 0 {
		return true
	}
	return (s.seq.Add(1)-1)%d < n
}

// parseRatio reads "n/d", or a bare "d" as 1/d. "off" and "0" report a zero
// ratio with ok set.
func parseRatio(raw string) (n, d int, ok bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "":
		return 0, 0, false
	case "off", "0":
		return 0, 0, true
	}
	num, den, hasSlash := strings.Cut(raw, "/")
	if !hasSlash {
		num, den = "1", raw
	}
	n, err1 := strconv.Atoi(strings.TrimSpace(num))
	d, err2 := strconv.Atoi(strings.TrimSpace(den))
	if err1 != nil || err2 != nil || n <= 0 || d <= 0 {
		return 0, 0, false
	}
	return n, d, true
}
