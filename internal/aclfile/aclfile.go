// Package aclfile implements a hot-reloaded IP denylist: a plain text
// file of one address per line, watched with fsnotify so an operator
// can ban or unban a peer without restarting the server.
package aclfile

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"
)

// Denylist is a reloadable set of denied IP addresses.
type Denylist struct {
	path string

	mu     sync.RWMutex
	denied map[string]struct{}

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Load reads path and returns a Denylist reflecting its current
// contents. A missing file is treated as an empty denylist so the
// server can start before an operator has created one.
func Load(path string) (*Denylist, error) {
	d := &Denylist{path: path, denied: map[string]struct{}{}}
	if err := d.reload(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Denylist) reload() error {
	f, err := os.Open(d.path)
	if os.IsNotExist(err) {
		d.mu.Lock()
		d.denied = map[string]struct{}{}
		d.mu.Unlock()
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	next := map[string]struct{}{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		next[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	d.denied = next
	d.mu.Unlock()
	klog.V(2).Infof("aclfile: reloaded %s (%d entries)", d.path, len(next))
	return nil
}

// Denied reports whether addr currently appears in the denylist.
func (d *Denylist) Denied(addr string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, denied := d.denied[addr]
	return denied
}

// Watch starts watching the denylist file's directory for writes and
// reloads on change. It runs until Close is called.
func (d *Denylist) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(d.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}
	d.watcher = watcher
	d.done = make(chan struct{})

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(d.path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := d.reload(); err != nil {
					klog.Errorf("aclfile: reload %s failed: %v", d.path, err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				klog.Errorf("aclfile: watch error: %v", err)
			case <-d.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the watcher, if one is running.
func (d *Denylist) Close() error {
	if d.watcher == nil {
		return nil
	}
	close(d.done)
	return d.watcher.Close()
}
