package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/indexer/index"
)

// Segment is a decoded snapshot. Postings stay in their encoded form until a
// term is looked up.
type Segment struct {
	Header     Header
	Posts      []catalogue.Post
	Categories []index.ListEntry
	Tags       []index.ListEntry
	Checksum   string

	dict     []DictEntry
	postings []byte
}

// Decode validates and parses an encoded segment.
func Decode(data []byte) (*Segment, error) {
	if len(data) < HeaderSize+FooterSize {
		return nil, fmt.Errorf("invalid segment: %d bytes is shorter than header and footer", len(data))
	}
	hb := data[:HeaderSize]
	magic := binary.LittleEndian.Uint32(hb[0:4])
	if magic != MagicBytes {
		return nil, fmt.Errorf("invalid segment: bad magic bytes %x", magic)
	}
	h := Header{
		Magic:       magic,
		Version:     binary.LittleEndian.Uint32(hb[4:8]),
		TermCount:   binary.LittleEndian.Uint32(hb[8:12]),
		PostCount:   binary.LittleEndian.Uint32(hb[12:16]),
		PostsOffset: int64(binary.LittleEndian.Uint64(hb[16:24])),
		PostOffset:  int64(binary.LittleEndian.Uint64(hb[24:32])),
		DictOffset:  int64(binary.LittleEndian.Uint64(hb[32:40])),
		ListsOffset: int64(binary.LittleEndian.Uint64(hb[40:48])),
		ListsSize:   int64(binary.LittleEndian.Uint64(hb[48:56])),
	}
	if h.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported segment format version %d", h.Version)
	}
	h.PostsSize = h.PostOffset - h.PostsOffset
	h.PostSize = h.DictOffset - h.PostOffset
	h.DictSize = h.ListsOffset - h.DictOffset

	body := int64(len(data) - FooterSize)
	if h.PostsOffset != int64(HeaderSize) || h.PostsSize < 0 || h.PostSize < 0 ||
		h.DictSize < 0 || h.ListsSize < 0 || h.ListsOffset+h.ListsSize != body {
		return nil, fmt.Errorf("invalid segment: inconsistent section offsets")
	}
	footer := data[body:]
	if want, got := binary.LittleEndian.Uint32(footer[0:4]), crc32.ChecksumIEEE(data[:body]); want != got {
		return nil, fmt.Errorf("invalid segment: checksum mismatch (%08x != %08x)", got, want)
	}

	seg := &Segment{
		Header:   h,
		Checksum: index.Checksum(data),
		postings: data[h.PostOffset:h.DictOffset],
	}
	if err := json.Unmarshal(data[h.PostsOffset:h.PostOffset], &seg.Posts); err != nil {
		return nil, fmt.Errorf("parsing posts: %w", err)
	}
	if err := json.Unmarshal(data[h.DictOffset:h.ListsOffset], &seg.dict); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}
	var l lists
	if err := json.Unmarshal(data[h.ListsOffset:body], &l); err != nil {
		return nil, fmt.Errorf("parsing lists: %w", err)
	}
	seg.Categories, seg.Tags = l.Categories, l.Tags
	return seg, nil
}

// ReadFile decodes the segment stored at path.
func ReadFile(path string) (*Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	return Decode(data)
}

// Search returns the postings for term, or nil when the term is absent.
func (s *Segment) Search(term string) (index.PostingList, error) {
	idx := sort.Search(len(s.dict), func(i int) bool {
		return s.dict[i].Term >= term
	})
	if idx >= len(s.dict) || s.dict[idx].Term != term {
		return nil, nil
	}
	entry := s.dict[idx]
	end := entry.PostOffset + int64(entry.PostLen)
	if entry.PostOffset < 0 || end > int64(len(s.postings)) {
		return nil, fmt.Errorf("postings for term %q out of range", term)
	}
	var postings index.PostingList
	if err := json.Unmarshal(s.postings[entry.PostOffset:end], &postings); err != nil {
		return nil, fmt.Errorf("parsing postings: %w", err)
	}
	return postings, nil
}

// Terms returns the number of distinct terms in the dictionary.
func (s *Segment) Terms() int {
	return len(s.dict)
}

// Restore rebuilds the posts of the segment as catalogue pointers in
// chronological order.
func (s *Segment) Restore() []*catalogue.Post {
	out := make([]*catalogue.Post, len(s.Posts))
	for i := range s.Posts {
		out[i] = &s.Posts[i]
	}
	return out
}
