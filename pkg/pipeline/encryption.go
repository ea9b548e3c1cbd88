package pipeline

import (
	"github.com/oneconcern/swarmtrie/pkg/encryption"
)

type encryptionWriter struct {
	encrypter encryption.ChunkEncrypter
	next      ChainWriter
}

// newEncryptionWriter encrypts chunk data with a new key per chunk. The plain span is kept.
func newEncryptionWriter(encrypter encryption.ChunkEncrypter, next ChainWriter) ChainWriter {
	return &encryptionWriter{encrypter: encrypter, next: next}
}

func (w *encryptionWriter) ChainWrite(p *PipeWriteArgs) error {
	key, encryptedSpan, encryptedData, err := w.encrypter.EncryptChunk(p.Data)
	if err != nil {
		return err
	}
	data := make([]byte, len(encryptedSpan)+len(encryptedData))
	copy(data, encryptedSpan)
	copy(data[len(encryptedSpan):], encryptedData)

	p.Key = key
	p.Data = data
	return w.next.ChainWrite(p)
}

func (w *encryptionWriter) Sum() ([]byte, error) {
	return w.next.Sum()
}
