package impl

import "encoding/base64"

// Profile blobs are stored base64-encoded so they survive text columns and
// JSON transport unchanged.

func encodeProfile(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

func decodeProfile(blob string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(blob)
}
