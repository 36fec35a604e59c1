package disk

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

/*
On-disk entry layout, one file per key:

	[ expiry  int64  big-endian, unix nanoseconds, 0 = never ]
	[ cost    uint64 big-endian, payload length              ]
	[ payload bytes produced by the codec                    ]

The layout is private to this package and may change between versions.
*/
const (
	headerSize = 16
	fileExt    = ".cache"
	tempExt    = ".tmp"
)

type header struct {
	expireAt time.Time
	cost     uint64
}

// fileName maps a key onto a filesystem-safe, fixed-length name.
func fileName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:]) + fileExt
}

func encodeEntry(deadline time.Time, payload []byte) []byte {
	buf := make([]byte, headerSize+len(payload))
	var exp int64
	if !deadline.IsZero() {
		exp = deadline.UnixNano()
	}
	binary.BigEndian.PutUint64(buf[0:8], uint64(exp))
	binary.BigEndian.PutUint64(buf[8:16], uint64(len(payload)))
	copy(buf[headerSize:], payload)
	return buf
}

func decodeHeader(b []byte) (header, error) {
	if len(b) < headerSize {
		return header{}, fmt.Errorf("short header: %d bytes", len(b))
	}
	var h header
	if exp := int64(binary.BigEndian.Uint64(b[0:8])); exp != 0 {
		h.expireAt = time.Unix(0, exp)
	}
	h.cost = binary.BigEndian.Uint64(b[8:16])
	return h, nil
}

func decodeEntry(b []byte) (header, []byte, error) {
	h, err := decodeHeader(b)
	if err != nil {
		return header{}, nil, err
	}
	payload := b[headerSize:]
	if uint64(len(payload)) != h.cost {
		return header{}, nil, fmt.Errorf("payload length %d does not match header %d", len(payload), h.cost)
	}
	return h, payload, nil
}
