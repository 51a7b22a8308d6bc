package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"prepkit/internal/notes"
)

// parseWorkers bounds concurrent note parsing during a scan.
const parseWorkers = 16

// hidden directories that still belong to the corpus.
var allowedHidden = map[string]bool{
	".github": true,
}

// skipDirs are never descended into, hidden or not.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
}

// ScanConfig tells the scanner where to look.
type ScanConfig struct {
	Roots    []string // note roots; the first is the primary root
	Ignore   []string // glob patterns of corpus-relative paths to skip
	CacheDir string   // manifest location, "" disables the cache
}

// Scanner walks the note roots and parses every Markdown file it finds.
type Scanner struct {
	cfg ScanConfig
	log *zap.Logger
}

func NewScanner(cfg ScanConfig, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{cfg: cfg, log: log.Named("catalog")}
}

// Scan builds the corpus. Parse failures land in Corpus.Errors rather than
// aborting the walk.
func (s *Scanner) Scan(ctx context.Context) (*Corpus, error) {
	files, err := s.collect()
	if err != nil {
		return nil, err
	}

	var manifest *Manifest
	if s.cfg.CacheDir != "" {
		manifest = OpenManifest(s.cfg.CacheDir)
	}

	corpus := &Corpus{
		ByPath: make(map[string]*notes.Note),
	}
	if len(s.cfg.Roots) > 0 {
		if abs, err := filepath.Abs(s.cfg.Roots[0]); err == nil {
			corpus.Root = abs
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parseWorkers)

	for _, f := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			data, err := os.ReadFile(f.abs)
			if err != nil {
				mu.Lock()
				corpus.Errors = append(corpus.Errors, ParseError{Path: f.rel, Err: err})
				mu.Unlock()
				return nil
			}
			sum := sha256.Sum256(data)
			hash := hex.EncodeToString(sum[:])

			note, err := notes.Parse(f.rel, data)
			if err != nil {
				mu.Lock()
				corpus.Errors = append(corpus.Errors, ParseError{Path: f.rel, Err: err})
				mu.Unlock()
				return nil
			}
			note.AbsPath = f.abs
			note.Hash = hash
			note.Size = f.info.Size()
			note.ModTime = f.info.ModTime()

			mu.Lock()
			if _, dup := corpus.ByPath[f.rel]; dup {
				s.log.Warn("duplicate note path across roots, keeping first",
					zap.String("path", f.rel))
			} else {
				corpus.ByPath[f.rel] = note
				corpus.Notes = append(corpus.Notes, note)
			}
			if manifest != nil {
				if old, ok := manifest.Get(f.rel); !ok || old.Hash != hash {
					corpus.Changed = append(corpus.Changed, f.rel)
				}
				manifest.Update(f.rel, f.info, hash)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(corpus.Notes, func(i, j int) bool {
		return corpus.Notes[i].Path < corpus.Notes[j].Path
	})
	sort.Strings(corpus.Changed)
	sort.Slice(corpus.Errors, func(i, j int) bool {
		return corpus.Errors[i].Path < corpus.Errors[j].Path
	})

	if manifest != nil {
		seen := make(map[string]bool, len(files))
		for _, f := range files {
			seen[f.rel] = true
		}
		for _, p := range manifest.Paths() {
			if !seen[p] {
				corpus.Deleted = append(corpus.Deleted, p)
				manifest.Remove(p)
			}
		}
		sort.Strings(corpus.Deleted)
		if err := manifest.Save(); err != nil {
			s.log.Warn("manifest save failed", zap.Error(err))
		}
	}

	s.log.Debug("scan complete",
		zap.Int("notes", len(corpus.Notes)),
		zap.Int("errors", len(corpus.Errors)),
		zap.Int("changed", len(corpus.Changed)))
	return corpus, nil
}

type scanFile struct {
	abs  string
	rel  string
	info os.FileInfo
}

// collect walks every root for Markdown files, honoring the ignore globs
// and the hidden directory allowlist.
func (s *Scanner) collect() ([]scanFile, error) {
	var files []scanFile
	for _, root := range s.cfg.Roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		err = filepath.Walk(absRoot, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			name := info.Name()
			if info.IsDir() {
				if p == absRoot {
					return nil
				}
				if skipDirs[name] {
					return filepath.SkipDir
				}
				if strings.HasPrefix(name, ".") && !allowedHidden[name] {
					return filepath.SkipDir
				}
				return nil
			}
			ext := strings.ToLower(filepath.Ext(name))
			if ext != ".md" && ext != ".markdown" {
				return nil
			}
			rel, err := filepath.Rel(absRoot, p)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if s.ignored(rel) {
				return nil
			}
			files = append(files, scanFile{abs: p, rel: rel, info: info})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func (s *Scanner) ignored(rel string) bool {
	for _, pattern := range s.cfg.Ignore {
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		// Directory patterns like "archive/*" apply to everything beneath.
		if dir, ok := strings.CutSuffix(pattern, "/*"); ok && strings.HasPrefix(rel, dir+"/") {
			return true
		}
	}
	return false
}
