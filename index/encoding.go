package index

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

const (
	SampleSeriesPrefix byte = 0x00 // per-variable time-keyed samples
	AuxDataPrefix      byte = 0x01 // auxiliary data (import markers etc.)

	keySep byte = 0x00
)

// encodeSeriesKey builds a key sorting samples of one (machine,
// variable) series chronologically: big-endian micros make the
// lexicographic key order equal the time order, which is what the
// range scans rely on.
func encodeSeriesKey(machineID, variable string, t time.Time) []byte {
	key := make([]byte, 0, 1+len(machineID)+1+len(variable)+1+8)
	key = append(key, SampleSeriesPrefix)
	key = append(key, []byte(machineID)...)
	key = append(key, keySep)
	key = append(key, []byte(variable)...)
	key = append(key, keySep)
	var tbuf [8]byte
	binary.BigEndian.PutUint64(tbuf[:], uint64(t.UTC().UnixMicro()))
	key = append(key, tbuf[:]...)
	return key
}

// encodeSeriesPrefix is the common prefix of all keys of one series.
func encodeSeriesPrefix(machineID, variable string) []byte {
	key := make([]byte, 0, 1+len(machineID)+1+len(variable)+1)
	key = append(key, SampleSeriesPrefix)
	key = append(key, []byte(machineID)...)
	key = append(key, keySep)
	key = append(key, []byte(variable)...)
	key = append(key, keySep)
	return key
}

// encodeMachinePrefix is the common prefix of all series of a machine.
func encodeMachinePrefix(machineID string) []byte {
	key := make([]byte, 0, 1+len(machineID)+1)
	key = append(key, SampleSeriesPrefix)
	key = append(key, []byte(machineID)...)
	key = append(key, keySep)
	return key
}

// decodeSeriesKey extracts machine ID, variable and time back from
// a series key.
func decodeSeriesKey(key []byte) (string, string, time.Time, error) {
	if len(key) < 11 || key[0] != SampleSeriesPrefix {
		return "", "", time.Time{}, fmt.Errorf("invalid series key of size %d", len(key))
	}
	body := key[1 : len(key)-8]
	sep := bytes.IndexByte(body, keySep)
	if sep == -1 || sep == len(body)-1 {
		return "", "", time.Time{}, fmt.Errorf("invalid series key structure")
	}
	machineID := string(body[:sep])
	variable := string(body[sep+1 : len(body)-1])
	micros := binary.BigEndian.Uint64(key[len(key)-8:])
	return machineID, variable, time.UnixMicro(int64(micros)).UTC(), nil
}

func encodeAuxKey(key string) []byte {
	keyBytes := make([]byte, 1+len(key))
	keyBytes[0] = AuxDataPrefix
	copy(keyBytes[1:], []byte(key))
	return keyBytes
}

func encodeTime(t time.Time) []byte {
	buf := make([]byte, 16)
	utc := t.UTC()
	binary.BigEndian.PutUint64(buf[0:8], uint64(utc.Unix()))
	binary.BigEndian.PutUint64(buf[8:16], uint64(utc.Nanosecond()))
	return buf
}

func decodeTime(data []byte) (time.Time, error) {
	if len(data) != 16 {
		return time.Time{}, fmt.Errorf("invalid byte slice length: expected 16, got %d", len(data))
	}
	seconds := int64(binary.BigEndian.Uint64(data[0:8]))
	nanoseconds := int64(binary.BigEndian.Uint64(data[8:16]))
	return time.Unix(seconds, nanoseconds).UTC(), nil
}
