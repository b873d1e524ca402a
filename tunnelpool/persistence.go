package tunnelpool

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	cacheFileName       = "TUNNELS"
	cacheBackupFileName = "TUNNELS.bak"
	cacheTmpFileName    = "TUNNELS.tmp"

	defaultCacheDir = "/var/lib/reqrypt-tunneld"
)

func (p *Pool) cacheDir() string {
	if p.cfg.CacheDir != "" {
		return p.cfg.CacheDir
	}
	return defaultCacheDir
}

func (p *Pool) cachePath(name string) string {
	return filepath.Join(p.cacheDir(), name)
}

// writeCacheLocked performs the three-file rotation write described
// in SPEC_FULL.md's Persistence section. Callers must hold p.mu; the
// lock is held across the whole sequence to serialise writers, the
// same discipline rotation.go uses for its backup/write-new sequence.
func (p *Pool) writeCacheLocked() error {
	live := p.cachePath(cacheFileName)
	backup := p.cachePath(cacheBackupFileName)
	tmp := p.cachePath(cacheTmpFileName)

	if err := os.Remove(backup); err != nil && !os.IsNotExist(err) {
		log.Printf("[tunnelpool] cache backup cleanup: %v", err)
	}
	if err := os.Rename(live, backup); err != nil && !os.IsNotExist(err) {
		log.Printf("[tunnelpool] cache backup rename: %v", err)
	}

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "# reqrypt-tunneld tunnel cache")
	fmt.Fprintln(w, "# AUTOMATICALLY GENERATED, DO NOT EDIT")

	var writeErr error
	p.cache.each(func(r *Record) {
		if r.Age == 0 || writeErr != nil {
			return
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "# AGE = %d\n", r.Age)
		fmt.Fprintf(w, "%s %d\n", r.URL, r.Age)
	})

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if writeErr != nil {
		return writeErr
	}
	if err := os.Rename(tmp, live); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmp, live, err)
	}
	return nil
}

// readCacheLocked loads the persisted cache at startup, falling back
// to the backup file if the live one cannot be opened. Callers must
// hold p.mu.
func (p *Pool) readCacheLocked() error {
	live := p.cachePath(cacheFileName)
	f, err := os.Open(live)
	if err != nil {
		backup := p.cachePath(cacheBackupFileName)
		f, err = os.Open(backup)
		if err != nil {
			return nil
		}
	}
	defer f.Close()
	return p.parseCacheLocked(f)
}

// parseCacheLocked reads line-oriented "<url> <age>" records from r,
// inserting each into the cache set in Closed state. It stops at the
// first malformed record but keeps whatever was parsed so far.
func (p *Pool) parseCacheLocked(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			log.Printf("[tunnelpool] cache parse: malformed line %q, stopping", line)
			return nil
		}
		url, ageStr := fields[0], fields[1]
		if url == "" || len(url) > MaxURLLength {
			log.Printf("[tunnelpool] cache parse: invalid url %q, stopping", url)
			return nil
		}
		age, err := strconv.ParseUint(ageStr, 10, 8)
		if err != nil {
			log.Printf("[tunnelpool] cache parse: invalid age %q for %s, stopping", ageStr, url)
			return nil
		}

		rec := newRecord(url, p.allocIDLocked(), uint8(age))
		p.cache.insert(rec)
	}
	return scanner.Err()
}
