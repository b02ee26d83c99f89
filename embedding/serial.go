package embedding

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// cacheMeta validates a cached vector set against the live configuration.
// Any field mismatch invalidates the whole cache.
type cacheMeta struct {
	ModelIdentity string
	Fingerprint   string
	Dimension     int
	Count         int
}

// vectorRecord is one cached concept vector.
type vectorRecord struct {
	Id     string
	Vector []float32
}

var vectorSer = ord.NewSliceSer[float32](raw.Float32)

// marshalMeta serializes a cacheMeta to bytes.
func marshalMeta(m cacheMeta) []byte {
	size := ord.String.Size(m.ModelIdentity) +
		ord.String.Size(m.Fingerprint) +
		varint.Int.Size(m.Dimension) +
		varint.Int.Size(m.Count)
	buf := make([]byte, size)
	n := ord.String.Marshal(m.ModelIdentity, buf)
	n += ord.String.Marshal(m.Fingerprint, buf[n:])
	n += varint.Int.Marshal(m.Dimension, buf[n:])
	varint.Int.Marshal(m.Count, buf[n:])
	return buf
}

// unmarshalMeta deserializes a cacheMeta from bytes.
func unmarshalMeta(data []byte) (cacheMeta, error) {
	var m cacheMeta
	var n, total int
	var err error

	m.ModelIdentity, n, err = ord.String.Unmarshal(data)
	if err != nil {
		return m, err
	}
	total = n
	m.Fingerprint, n, err = ord.String.Unmarshal(data[total:])
	if err != nil {
		return m, err
	}
	total += n
	m.Dimension, n, err = varint.Int.Unmarshal(data[total:])
	if err != nil {
		return m, err
	}
	total += n
	m.Count, _, err = varint.Int.Unmarshal(data[total:])
	return m, err
}

// marshalVectorRecord serializes a vectorRecord to bytes.
func marshalVectorRecord(r vectorRecord) []byte {
	size := ord.String.Size(r.Id) + vectorSer.Size(r.Vector)
	buf := make([]byte, size)
	n := ord.String.Marshal(r.Id, buf)
	vectorSer.Marshal(r.Vector, buf[n:])
	return buf
}

// unmarshalVectorRecord deserializes a vectorRecord from bytes.
func unmarshalVectorRecord(data []byte) (vectorRecord, error) {
	var r vectorRecord
	n, err := 0, error(nil)
	r.Id, n, err = ord.String.Unmarshal(data)
	if err != nil {
		return r, err
	}
	r.Vector, _, err = vectorSer.Unmarshal(data[n:])
	return r, err
}
