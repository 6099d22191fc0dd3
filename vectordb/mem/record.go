package mem

import (
	"fmt"
	"time"

	"github.com/viant/bintly"

	"github.com/viant/docrag/vectordb/meta"
)

const (
	snapshotVersion = 2
	// version 1 records carry no write sequence
	snapshotVersionNoSCN = 1
)

type record struct {
	id       string
	scn      int64
	document string
	vector   []float32
	metadata map[string]any
}

func (r *record) key() string {
	if key := meta.GetString(r.metadata, meta.DocumentKey); key != "" {
		return key
	}
	return r.id
}

// EncodeBinary writes the record; metadata is grouped by value type.
func (r *record) EncodeBinary(stream *bintly.Writer) error {
	stream.String(r.id)
	stream.Int64(r.scn)
	stream.String(r.document)
	stream.Int(len(r.vector))
	for _, v := range r.vector {
		stream.Float32(v)
	}
	var intKeys, float32Keys, float64Keys, stringKeys, timeKeys []string
	for k, v := range r.metadata {
		switch v.(type) {
		case int:
			intKeys = append(intKeys, k)
		case float32:
			float32Keys = append(float32Keys, k)
		case float64:
			float64Keys = append(float64Keys, k)
		case string:
			stringKeys = append(stringKeys, k)
		case time.Time:
			timeKeys = append(timeKeys, k)
		default:
			return fmt.Errorf("%w: %s=%T", ErrUnsupportedMeta, k, v)
		}
	}
	stream.Int16(int16(len(intKeys)))
	for _, k := range intKeys {
		stream.String(k)
		stream.Int(r.metadata[k].(int))
	}
	stream.Int16(int16(len(float32Keys)))
	for _, k := range float32Keys {
		stream.String(k)
		stream.Float32(r.metadata[k].(float32))
	}
	stream.Int16(int16(len(float64Keys)))
	for _, k := range float64Keys {
		stream.String(k)
		stream.Float64(r.metadata[k].(float64))
	}
	stream.Int16(int16(len(stringKeys)))
	for _, k := range stringKeys {
		stream.String(k)
		stream.String(r.metadata[k].(string))
	}
	stream.Int16(int16(len(timeKeys)))
	for _, k := range timeKeys {
		stream.String(k)
		stream.Time(r.metadata[k].(time.Time))
	}
	return nil
}

// DecodeBinary reads a record written by EncodeBinary.
func (r *record) DecodeBinary(stream *bintly.Reader) error {
	return r.decode(stream, snapshotVersion)
}

func (r *record) decode(stream *bintly.Reader, version int) error {
	stream.String(&r.id)
	if version >= snapshotVersion {
		stream.Int64(&r.scn)
	}
	stream.String(&r.document)
	var n int
	stream.Int(&n)
	if n < 0 {
		return ErrSnapshotCorrupt
	}
	r.vector = make([]float32, n)
	for i := range r.vector {
		stream.Float32(&r.vector[i])
	}
	r.metadata = map[string]any{}
	var size int16
	stream.Int16(&size)
	for i := 0; i < int(size); i++ {
		var key string
		var value int
		stream.String(&key)
		stream.Int(&value)
		r.metadata[key] = value
	}
	stream.Int16(&size)
	for i := 0; i < int(size); i++ {
		var key string
		var value float32
		stream.String(&key)
		stream.Float32(&value)
		r.metadata[key] = value
	}
	stream.Int16(&size)
	for i := 0; i < int(size); i++ {
		var key string
		var value float64
		stream.String(&key)
		stream.Float64(&value)
		r.metadata[key] = value
	}
	stream.Int16(&size)
	for i := 0; i < int(size); i++ {
		var key, value string
		stream.String(&key)
		stream.String(&value)
		r.metadata[key] = value
	}
	stream.Int16(&size)
	for i := 0; i < int(size); i++ {
		var key string
		var value time.Time
		stream.String(&key)
		stream.Time(&value)
		r.metadata[key] = value
	}
	return nil
}
