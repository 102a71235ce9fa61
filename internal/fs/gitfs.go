package fs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"strconv"
	"strings"
	"time"
)

// GitFS implements FileSystem by reading from a git ref (branch, tag, or
// commit). An optional sub-path selects a directory inside the tree as the
// base directory.
type GitFS struct {
	repoPath string
	ref      string
	subPath  string
}

// NewGitFS creates a GitFS that reads files from the given ref in the
// repository at repoPath, rooted at subPath ("" for the top of the tree).
func NewGitFS(repoPath, ref, subPath string) *GitFS {
	return &GitFS{
		repoPath: repoPath,
		ref:      ref,
		subPath:  strings.Trim(subPath, "/"),
	}
}

func (g *GitFS) git(args ...string) (string, error) {
	cmd := exec.Command("git", append([]string{"-C", g.repoPath}, args...)...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}

// objPath maps a path relative to the base directory onto a path inside
// the tree; "" is the top of the tree.
func (g *GitFS) objPath(p string) string {
	p = strings.Trim(p, "/")
	if p == "." {
		p = ""
	}
	switch {
	case g.subPath == "":
		return p
	case p == "":
		return g.subPath
	default:
		return g.subPath + "/" + p
	}
}

// Physical returns "repo@ref:path" for path.
func (g *GitFS) Physical(p string) string {
	return g.repoPath + "@" + g.ref + ":" + g.objPath(p)
}

// ReadFile reads the contents of the file at the given path from the git ref.
// A path missing from the ref yields os.ErrNotExist, even when a file of that
// name exists in the working tree.
func (g *GitFS) ReadFile(p string) ([]byte, error) {
	objPath := g.objPath(p)
	if objPath == "" {
		return nil, fmt.Errorf("cannot read directory as file")
	}
	info, err := g.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir {
		return nil, fmt.Errorf("cannot read directory %s as file", objPath)
	}

	cmd := exec.Command("git", "-C", g.repoPath, "show", g.ref+":"+objPath)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("git show: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}

// Open returns the blob contents as a stream. Blobs are read fully by git
// show, so the reader is backed by memory.
func (g *GitFS) Open(p string) (io.ReadCloser, error) {
	data, err := g.ReadFile(p)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// treeEntry is one record of `git ls-tree -z -l`.
type treeEntry struct {
	typ  string
	size string
	name string
}

// lsTree runs ls-tree with NUL-terminated records so names come back
// unquoted and untrimmed.
func (g *GitFS) lsTree(pathspec string) ([]treeEntry, error) {
	args := []string{"ls-tree", "-z", "-l", g.ref}
	if pathspec != "" {
		args = append(args, "--", pathspec)
	}
	out, err := g.git(args...)
	if err != nil {
		return nil, err
	}

	var entries []treeEntry
	for _, rec := range strings.Split(out, "\x00") {
		// Format: "<mode> <type> <hash> <size>\t<name>"
		tabIdx := strings.IndexByte(rec, '\t')
		if tabIdx < 0 {
			continue
		}
		fields := strings.Fields(rec[:tabIdx])
		if len(fields) < 4 {
			continue
		}
		entries = append(entries, treeEntry{typ: fields[1], size: fields[3], name: rec[tabIdx+1:]})
	}
	return entries, nil
}

// Stat returns metadata for the file or directory at the given path in the git ref.
func (g *GitFS) Stat(p string) (FileInfo, error) {
	objPath := g.objPath(p)

	// For the top of the tree, check if the ref exists at all
	if objPath == "" {
		_, err := g.git("rev-parse", "--verify", g.ref)
		if err != nil {
			return FileInfo{}, os.ErrNotExist
		}
		return FileInfo{
			Name:    g.ref,
			IsDir:   true,
			ModTime: g.getModTime(""),
		}, nil
	}

	entries, err := g.lsTree(objPath)
	if err != nil {
		return FileInfo{}, os.ErrNotExist
	}
	for _, e := range entries {
		if e.name != objPath {
			continue
		}
		info := FileInfo{
			Name:    path.Base(objPath),
			IsDir:   e.typ == "tree",
			ModTime: g.getModTime(objPath),
		}
		if !info.IsDir {
			info.Size, _ = strconv.ParseInt(e.size, 10, 64)
		}
		return info, nil
	}
	return FileInfo{}, os.ErrNotExist
}

// ReadDir lists the immediate children of the directory at the given path
// in the git ref, in name order.
func (g *GitFS) ReadDir(p string) ([]DirEntry, error) {
	objPath := g.objPath(p)

	pathspec := ""
	if objPath != "" {
		pathspec = objPath + "/"
	}
	treeEntries, err := g.lsTree(pathspec)
	if err != nil {
		return nil, os.ErrNotExist
	}

	entries := make([]DirEntry, 0, len(treeEntries))
	for _, e := range treeEntries {
		entries = append(entries, DirEntry{
			Name:  path.Base(e.name),
			IsDir: e.typ == "tree",
		})
	}
	return entries, nil
}

func (g *GitFS) getModTime(objPath string) time.Time {
	args := []string{"log", "-1", "--format=%ct", g.ref}
	if objPath != "" {
		args = append(args, "--", objPath)
	}
	out, err := g.git(args...)
	if err != nil {
		return time.Time{}
	}
	ts := strings.TrimSpace(out)
	if ts == "" {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
