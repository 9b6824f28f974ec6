package gateway

import (
	"context"
	"io"
	"log/slog"
	"os"

	"sensilo-go/errcode"
	"sensilo-go/services/gateway/internal/pcapfile"
)

// StreamPcap replays a capture file as a stream of Captures. The channel
// closes on end of file, on a corrupt record or when the context is
// cancelled; corruption is logged, not returned, since everything read up
// to that point was already delivered.
func StreamPcap(ctx context.Context, path string, log *slog.Logger) (<-chan Capture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "gateway.StreamPcap", Msg: "open " + path, Err: err}
	}
	rd, err := pcapfile.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	out := make(chan Capture, 16)
	go func() {
		defer close(out)
		defer f.Close()
		for {
			p, err := rd.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				log.Warn("capture file unreadable past this point", slog.Any("err", err))
				return
			}
			select {
			case out <- Capture{Data: p.Data, OriginalLength: p.OriginalLength, TS: p.TS}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
