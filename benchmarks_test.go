package lintas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
)

// BenchmarkRegistryRegisterRelease measures the hot path of every request.
func BenchmarkRegistryRegisterRelease(b *testing.B) {
	b.Run("UniqueIDs", func(b *testing.B) {
		r := NewRequestRegistry()
		var n atomic.Int64
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				h := r.Register(context.Background(), fmt.Sprintf("req-%d", n.Add(1)))
				h.Release()
			}
		})
	})

	b.Run("SharedID", func(b *testing.B) {
		r := NewRequestRegistry()
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				h := r.Register(context.Background(), "search-box")
				h.Release()
			}
		})
	})
}

// BenchmarkRegistryCancelByPrefix cancels a prefix out of a populated registry.
func BenchmarkRegistryCancelByPrefix(b *testing.B) {
	for _, size := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("Size%d", size), func(b *testing.B) {
			r := NewRequestRegistry()
			for i := range size {
				r.Register(context.Background(), fmt.Sprintf("other-%d", i))
			}
			b.ResetTimer()
			for range b.N {
				r.Register(context.Background(), "ai-query-top-llm-1")
				r.CancelByPrefix("ai-query-")
			}
		})
	}
}

func BenchmarkNormalize(b *testing.B) {
	bodies := map[string][]byte{
		"Envelope":    []byte(`{"code":200,"data":{"id":1,"title":"incident","messages":[1,2,3]},"message":"ok"}`),
		"Failure":     []byte(`{"code":500,"message":"internal error"}`),
		"Passthrough": []byte(`[{"id":1},{"id":2},{"id":3}]`),
	}
	for name, body := range bodies {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for range b.N {
				_, _ = Normalize(body, ModeEnveloped)
			}
		})
	}
}

func BenchmarkReadNDJSON(b *testing.B) {
	var buf bytes.Buffer
	for i := range 1000 {
		fmt.Fprintf(&buf, `{"expert":"e%d","score":%d,"note":"steady state"}`+"\n", i, i%100)
	}
	payload := buf.Bytes()

	for _, chunk := range []int{64, 4096} {
		b.Run(fmt.Sprintf("Chunk%d", chunk), func(b *testing.B) {
			b.SetBytes(int64(len(payload)))
			b.ReportAllocs()
			for range b.N {
				_, err := ReadNDJSON(context.Background(), bytes.NewReader(payload),
					func(json.RawMessage) error { return nil },
					WithChunkSize(chunk))
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
