package http

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// MediaEntry is one item of a media listing.
type MediaEntry struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Dir      bool      `json:"dir"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// MediaListing is the body of the /media routes for directories.
type MediaListing struct {
	Path    string       `json:"path"`
	Entries []MediaEntry `json:"entries"`
}

var errUnsafePath = errors.New("unsafe path")

// ListDrives handles the GET /media request: the directories at the media root.
func (s *Server) ListDrives(w http.ResponseWriter, r *http.Request) {
	entries, err := s.list("")
	if err != nil {
		s.mediaError(w, err)
		return
	}
	drives := entries[:0]
	for _, e := range entries {
		if e.Dir {
			drives = append(drives, e)
		}
	}
	writeJSON(w, http.StatusOK, MediaListing{Path: "", Entries: drives})
}

// GetMedia handles GET /media/{drive} and GET /media/{drive}/*.
// Directories are listed as JSON; files are served as is.
func (s *Server) GetMedia(w http.ResponseWriter, r *http.Request) {
	rel, err := mediaPath(chi.URLParam(r, "drive"), chi.URLParam(r, "*"))
	if err != nil {
		s.mediaError(w, err)
		return
	}

	full := filepath.Join(s.media, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err != nil {
		s.mediaError(w, err)
		return
	}
	if !info.IsDir() {
		f, err := os.Open(full)
		if err != nil {
			s.mediaError(w, err)
			return
		}
		defer f.Close()
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
		return
	}

	entries, err := s.list(rel)
	if err != nil {
		s.mediaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MediaListing{Path: rel, Entries: entries})
}

// mediaPath joins the route segments into a slash separated path local to
// the media root. Any ".." segment is rejected.
func mediaPath(drive, rest string) (string, error) {
	segments := []string{drive}
	for _, seg := range strings.Split(rest, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	for _, seg := range segments {
		if seg == ".." || seg == "." || strings.ContainsAny(seg, `\`) {
			return "", errUnsafePath
		}
	}
	rel := strings.Join(segments, "/")
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return "", errUnsafePath
	}
	return rel, nil
}

func (s *Server) list(rel string) ([]MediaEntry, error) {
	dirEntries, err := os.ReadDir(filepath.Join(s.media, filepath.FromSlash(rel)))
	if err != nil {
		return nil, err
	}
	entries := make([]MediaEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if strings.HasPrefix(de.Name(), ".") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entry := MediaEntry{
			Name:     de.Name(),
			Path:     strings.TrimPrefix(rel+"/"+de.Name(), "/"),
			Dir:      de.IsDir(),
			Modified: info.ModTime().UTC(),
		}
		if !entry.Dir {
			entry.Size = info.Size()
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Dir != entries[j].Dir {
			return entries[i].Dir
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

func (s *Server) mediaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errUnsafePath):
		writeError(w, http.StatusBadRequest, "invalid media path")
	case errors.Is(err, fs.ErrNotExist):
		writeError(w, http.StatusNotFound, "media not found")
	default:
		s.logger.Error("media access failed", "error", err)
		writeError(w, http.StatusInternalServerError, "media unavailable")
	}
}
