// Package cloudwriter abstracts object-store uploads so output sinks can
// target cloud storage without knowing the provider.
package cloudwriter

type CloudWriter interface {
	Write(data []byte) (int, error)
	Close() error
}

type CloudWriterFactory interface {
	NewWriter(bucket, objectPath string) (CloudWriter, error)
}
