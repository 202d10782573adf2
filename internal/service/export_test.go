package service

import "time"

func (t *Tokens) WithClock(now func() time.Time) *Tokens {
	t.now = now
	return t
}

var GenerateCode = generateCode
