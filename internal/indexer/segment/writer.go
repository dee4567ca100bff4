// Package segment serialises index snapshots into a self-describing binary
// layout. Encoding is canonical: the same catalogue always yields the same
// bytes, which is what makes the snapshot version hash stable.
package segment

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/indexer/index"
)

// MagicBytes identifies a snapshot segment ("CSSG").
const (
	MagicBytes    uint32 = 0x43535347
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 32
)

// Header is the 64-byte header at the start of every segment. Offsets are
// absolute.
type Header struct {
	Magic       uint32
	Version     uint32
	TermCount   uint32
	PostCount   uint32
	PostsOffset int64
	PostsSize   int64
	PostOffset  int64
	PostSize    int64
	DictOffset  int64
	DictSize    int64
	ListsOffset int64
	ListsSize   int64
}

// DictEntry maps a term to its postings offset (relative to the postings
// section), byte length and document frequency.
type DictEntry struct {
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
}

type lists struct {
	Categories []index.ListEntry `json:"categories"`
	Tags       []index.ListEntry `json:"tags"`
}

// Encode writes snap as: header, posts (chronological JSON array), postings,
// term dictionary, category/tag lists, footer. The build time is not
// encoded.
func Encode(snap *index.Snapshot) ([]byte, error) {
	postsData, err := json.Marshal(snap.Posts())
	if err != nil {
		return nil, fmt.Errorf("marshaling posts: %w", err)
	}

	terms := snap.Terms()
	var postings bytes.Buffer
	dict := make([]DictEntry, 0, len(terms))
	for _, entry := range terms {
		data, err := json.Marshal(entry.Postings)
		if err != nil {
			return nil, fmt.Errorf("marshaling postings for term %q: %w", entry.Term, err)
		}
		dict = append(dict, DictEntry{
			Term:       entry.Term,
			PostOffset: int64(postings.Len()),
			PostLen:    len(data),
			DocFreq:    len(entry.Postings),
		})
		postings.Write(data)
	}
	dictData, err := json.Marshal(dict)
	if err != nil {
		return nil, fmt.Errorf("marshaling dictionary: %w", err)
	}
	listsData, err := json.Marshal(lists{
		Categories: snap.CategoryLists(),
		Tags:       snap.TagLists(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling lists: %w", err)
	}

	h := Header{
		Magic:     MagicBytes,
		Version:   FormatVersion,
		TermCount: uint32(len(dict)),
		PostCount: uint32(snap.Len()),
	}
	offset := int64(HeaderSize)
	h.PostsOffset, h.PostsSize = offset, int64(len(postsData))
	offset += h.PostsSize
	h.PostOffset, h.PostSize = offset, int64(postings.Len())
	offset += h.PostSize
	h.DictOffset, h.DictSize = offset, int64(len(dictData))
	offset += h.DictSize
	h.ListsOffset, h.ListsSize = offset, int64(len(listsData))
	offset += h.ListsSize

	buf := bytes.NewBuffer(make([]byte, 0, offset+int64(FooterSize)))
	buf.Write(encodeHeader(h))
	buf.Write(postsData)
	buf.Write(postings.Bytes())
	buf.Write(dictData)
	buf.Write(listsData)

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(buf.Bytes()))
	binary.LittleEndian.PutUint64(footer[8:16], uint64(offset))
	buf.Write(footer)
	return buf.Bytes(), nil
}

func encodeHeader(h Header) []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.TermCount)
	binary.LittleEndian.PutUint32(b[12:16], h.PostCount)
	// sizes are recoverable from consecutive offsets, so only offsets and
	// the final section size are stored
	binary.LittleEndian.PutUint64(b[16:24], uint64(h.PostsOffset))
	binary.LittleEndian.PutUint64(b[24:32], uint64(h.PostOffset))
	binary.LittleEndian.PutUint64(b[32:40], uint64(h.DictOffset))
	binary.LittleEndian.PutUint64(b[40:48], uint64(h.ListsOffset))
	binary.LittleEndian.PutUint64(b[48:56], uint64(h.ListsSize))
	return b
}

// WriteFile encodes snap and atomically replaces path with it, writing to a
// .tmp file first and renaming on success.
func WriteFile(path string, snap *index.Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating segment directory: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp segment file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing segment: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing segment file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming segment file: %w", err)
	}
	return nil
}
