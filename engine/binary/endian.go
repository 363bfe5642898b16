// Package binary provides the wire-format primitives the page layer is
// built on: big-endian scalar conversion and the page checksum. Pure byte
// accessors, no allocation beyond what encoding/binary itself needs.
package binary

import "encoding/binary"

// PutUint16, PutUint32, PutUint64, PutInt64 write a big-endian scalar at
// buf[0:n]. GetUint16 etc. read one back. These are thin names over
// encoding/binary.BigEndian so every page accessor reads the same way:
// "put/get this field, big-endian, at this offset".

func PutUint16(buf []byte, v uint16) { binary.BigEndian.PutUint16(buf, v) }
func GetUint16(buf []byte) uint16    { return binary.BigEndian.Uint16(buf) }

func PutUint32(buf []byte, v uint32) { binary.BigEndian.PutUint32(buf, v) }
func GetUint32(buf []byte) uint32    { return binary.BigEndian.Uint32(buf) }

func PutUint64(buf []byte, v uint64) { binary.BigEndian.PutUint64(buf, v) }
func GetUint64(buf []byte) uint64    { return binary.BigEndian.Uint64(buf) }

func PutInt64(buf []byte, v int64) { binary.BigEndian.PutUint64(buf, uint64(v)) }
func GetInt64(buf []byte) int64    { return int64(binary.BigEndian.Uint64(buf)) }

func PutInt32(buf []byte, v int32) { binary.BigEndian.PutUint32(buf, uint32(v)) }
func GetInt32(buf []byte) int32    { return int32(binary.BigEndian.Uint32(buf)) }
