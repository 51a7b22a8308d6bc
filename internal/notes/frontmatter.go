package notes

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrUnterminatedFrontMatter is returned when a file opens a YAML front
// matter block and never closes it.
var ErrUnterminatedFrontMatter = errors.New("unterminated front matter block")

// FrontMatter is the optional YAML block at the top of a note.
type FrontMatter struct {
	Title  string   `yaml:"title"`
	Topics []string `yaml:"topics"`
	Tags   []string `yaml:"tags"`
	Draft  bool     `yaml:"draft"`
}

var fmDelim = []byte("---")

// splitFrontMatter separates an optional front matter block from the note
// body. It returns the decoded block, the remaining body, and the number of
// lines the block occupied (delimiters included) so that line numbers in
// the body can be mapped back to the file.
func splitFrontMatter(src []byte) (FrontMatter, []byte, int, error) {
	var fm FrontMatter
	if !bytes.HasPrefix(src, fmDelim) {
		return fm, src, 0, nil
	}
	after, ok := bytes.CutPrefix(src, fmDelim)
	if !ok || (len(after) > 0 && after[0] != '\n') {
		return fm, src, 0, nil
	}
	if len(after) > 0 {
		after = after[1:]
	}

	lines := bytes.Split(after, []byte("\n"))
	for i, ln := range lines {
		if !bytes.Equal(bytes.TrimRight(ln, " \t"), fmDelim) {
			continue
		}
		block := bytes.Join(lines[:i], []byte("\n"))
		if err := yaml.Unmarshal(block, &fm); err != nil {
			return fm, src, 0, fmt.Errorf("decode front matter: %w", err)
		}
		body := bytes.Join(lines[i+1:], []byte("\n"))
		return fm, body, i + 2, nil
	}
	return fm, src, 0, ErrUnterminatedFrontMatter
}
