package model

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/YuminosukeSato/l0learn/pkg/errors"
	"github.com/YuminosukeSato/l0learn/sparse/cv"
	"github.com/YuminosukeSato/l0learn/sparse/path"
)

const (
	archiveMagic   = "L0LA"
	archiveVersion = uint16(1)
	// magic | version | checksum | payload length
	headerSize = 4 + 2 + 8 + 8
)

// PathArchive は学習済みのパス、交差検証結果、学習時の設定をまとめたものです。
// Config は設定ファイルと同じ YAML 形式のスナップショットです。
type PathArchive struct {
	Config   []byte         `msgpack:"config"`
	State    ModelState     `msgpack:"state"`
	Solution *path.Solution `msgpack:"solution"`
	CV       *cv.Result     `msgpack:"cv,omitempty"`
}

var zstdEncoderPool = sync.Pool{
	New: func() any {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			panic("zstd encoder: " + err.Error())
		}
		return enc
	},
}

var zstdDecoderPool = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			panic("zstd decoder: " + err.Error())
		}
		return dec
	},
}

// WriteArchive はアーカイブを書き出す
//
// フォーマット: "L0LA" | version(uint16) | xxhash64(payload) | len(payload) | payload
// payload は msgpack でエンコードした PathArchive を zstd で圧縮したもの。
func WriteArchive(w io.Writer, a *PathArchive) error {
	if a == nil || a.Solution == nil {
		return errors.NewValueError("WriteArchive", "archive has no solution")
	}
	raw, err := msgpack.Marshal(a)
	if err != nil {
		return errors.Wrap(err, "failed to encode archive")
	}

	enc := zstdEncoderPool.Get().(*zstd.Encoder)
	payload := enc.EncodeAll(raw, nil)
	zstdEncoderPool.Put(enc)

	header := make([]byte, headerSize)
	copy(header, archiveMagic)
	binary.BigEndian.PutUint16(header[4:], archiveVersion)
	binary.BigEndian.PutUint64(header[6:], xxhash.Sum64(payload))
	binary.BigEndian.PutUint64(header[14:], uint64(len(payload)))

	if _, err := w.Write(header); err != nil {
		return errors.Wrap(err, "failed to write archive header")
	}
	if _, err := w.Write(payload); err != nil {
		return errors.Wrap(err, "failed to write archive payload")
	}
	return nil
}

// ReadArchive はアーカイブを読み込み、チェックサムを検証する
func ReadArchive(r io.Reader) (*PathArchive, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, errors.Wrap(err, "failed to read archive header")
	}
	if !bytes.Equal(header[:4], []byte(archiveMagic)) {
		return nil, errors.NewValueError("ReadArchive", "not an l0learn archive")
	}
	if v := binary.BigEndian.Uint16(header[4:]); v != archiveVersion {
		return nil, errors.NewValueError("ReadArchive", "unsupported archive version "+strconv.Itoa(int(v)))
	}
	sum := binary.BigEndian.Uint64(header[6:])
	size := binary.BigEndian.Uint64(header[14:])

	payload, err := io.ReadAll(io.LimitReader(r, int64(size)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read archive payload")
	}
	if uint64(len(payload)) != size {
		return nil, errors.Wrap(io.ErrUnexpectedEOF, "archive payload truncated")
	}
	if xxhash.Sum64(payload) != sum {
		return nil, errors.WithStack(errors.ErrChecksumMismatch)
	}

	dec := zstdDecoderPool.Get().(*zstd.Decoder)
	raw, err := dec.DecodeAll(payload, nil)
	zstdDecoderPool.Put(dec)
	if err != nil {
		return nil, errors.Wrap(err, "zstd decompression failed")
	}

	a := &PathArchive{}
	if err := msgpack.Unmarshal(raw, a); err != nil {
		return nil, errors.Wrap(err, "failed to decode archive")
	}
	return a, nil
}

// SaveArchive はアーカイブをファイルに保存する
func SaveArchive(a *PathArchive, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	if err := WriteArchive(file, a); err != nil {
		file.Close()
		return err
	}
	return errors.Wrap(file.Close(), "failed to close file")
}

// LoadArchive はファイルからアーカイブを読み込む
func LoadArchive(filename string) (*PathArchive, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer file.Close()
	return ReadArchive(file)
}
