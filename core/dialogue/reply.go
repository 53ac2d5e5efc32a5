package dialogue

import "fmt"

// Reply is what one engine call wants sent back to the user.
type Reply struct {
	Messages []string
	// Options are quick-reply suggestions for the next input.
	Options []string
	// Closed is true when no session remains open after this reply.
	Closed bool
}

func say(format string, args ...any) Reply {
	return Reply{Messages: []string{fmt.Sprintf(format, args...)}}
}

func (r Reply) then(format string, args ...any) Reply {
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
	return r
}

func (r Reply) with(options ...string) Reply {
	r.Options = options
	return r
}
