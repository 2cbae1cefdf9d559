package sealer

import (
	"bytes"
	"fmt"

	"github.com/ericfisherdev/bitbrowse/internal/domain/port/driven"
)

// A sealed blob is a single header line "<algorithm>:<keyID>\n" followed by
// the cipher payload. The header lets Open reject blobs written by another
// sealer or key before attempting decryption.

func header(algorithm, keyID string) []byte {
	return []byte(algorithm + ":" + keyID + "\n")
}

func wrap(algorithm, keyID string, payload []byte) []byte {
	h := header(algorithm, keyID)
	out := make([]byte, 0, len(h)+len(payload))
	out = append(out, h...)
	return append(out, payload...)
}

// unwrap splits blob into its header fields and payload.
func unwrap(blob []byte) (algorithm, keyID string, payload []byte, err error) {
	line, rest, found := bytes.Cut(blob, []byte("\n"))
	if !found {
		return "", "", nil, fmt.Errorf("missing envelope header: %w", driven.ErrCorrupt)
	}
	alg, id, found := bytes.Cut(line, []byte(":"))
	if !found || len(alg) == 0 {
		return "", "", nil, fmt.Errorf("malformed envelope header: %w", driven.ErrCorrupt)
	}
	return string(alg), string(id), rest, nil
}
