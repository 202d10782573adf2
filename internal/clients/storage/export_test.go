package storage

var ObjectKey = objectKey

func (m *Minio) ObjectURL(key string) string { return m.objectURL(key) }
