package lock

func (l *Local) Size() int { return l.size() }
