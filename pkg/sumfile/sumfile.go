package sumfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

type hashedEntity struct {
	hash   []byte
	entity string
	algo   string
}

// Sumfile is a sorted list of "algo:base58hash name" lines recording the
// digest of files kept next to it.
type Sumfile struct {
	entities []hashedEntity
}

func (s *Sumfile) Load(r io.Reader) error {
	br := bufio.NewReader(r)

	for lineNo := 1; ; lineNo++ {
		line, err := br.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return err
		}

		if len(bytes.TrimSpace(line)) > 0 {
			he, perr := parseLine(line)
			if perr != nil {
				return errors.Wrapf(perr, "line %d", lineNo)
			}

			s.set(he)
		}

		if err == io.EOF {
			return nil
		}
	}
}

func parseLine(line []byte) (hashedEntity, error) {
	var he hashedEntity

	colon := bytes.IndexByte(line, ':')
	if colon == -1 {
		return he, errors.New("missing algorithm")
	}

	space := bytes.IndexByte(line, ' ')
	if space == -1 || space < colon {
		return he, errors.New("missing entity name")
	}

	b, err := base58.Decode(string(line[colon+1 : space]))
	if err != nil {
		return he, err
	}

	he.algo = string(line[:colon])
	he.hash = b
	he.entity = string(bytes.TrimSpace(line[space+1:]))

	return he, nil
}

// Add records h for entity, replacing any previous entry, and returns the
// encoded digest.
func (s *Sumfile) Add(entity, algo string, h []byte) string {
	s.set(hashedEntity{
		algo:   algo,
		hash:   h,
		entity: entity,
	})

	return algo + ":" + base58.Encode(h)
}

func (s *Sumfile) set(he hashedEntity) {
	idx := s.search(he.entity)
	if idx < len(s.entities) && s.entities[idx].entity == he.entity {
		s.entities[idx] = he
		return
	}

	s.entities = append(s.entities, hashedEntity{})
	copy(s.entities[idx+1:], s.entities[idx:])
	s.entities[idx] = he
}

func (s *Sumfile) search(entity string) int {
	return sort.Search(len(s.entities), func(i int) bool {
		return s.entities[i].entity >= entity
	})
}

func (s *Sumfile) Save(w io.Writer) error {
	for _, he := range s.entities {
		sh := base58.Encode(he.hash)

		_, err := fmt.Fprintf(w, "%s:%s %s\n", he.algo, sh, he.entity)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Sumfile) Lookup(entity string) (string, []byte, bool) {
	idx := s.search(entity)

	if idx == len(s.entities) {
		return "", nil, false
	}

	if s.entities[idx].entity == entity {
		return s.entities[idx].algo, s.entities[idx].hash, true
	}

	return "", nil, false
}

// ReadFile loads path. A missing file yields an empty Sumfile.
func ReadFile(path string) (*Sumfile, error) {
	var sf Sumfile

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &sf, nil
		}

		return nil, err
	}

	defer f.Close()

	err = sf.Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}

	return &sf, nil
}

func (s *Sumfile) WriteFile(path string) error {
	var buf bytes.Buffer

	err := s.Save(&buf)
	if err != nil {
		return err
	}

	return os.WriteFile(path, buf.Bytes(), 0644)
}
