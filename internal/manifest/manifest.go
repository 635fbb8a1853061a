// Package manifest reads the per-conversation JSON files of a messaging
// export and turns their media entries into exiftool date writes.
//
// A manifest looks like:
//
//	{"messages": [
//	  {"timestamp_ms": 1614878525000,
//	   "photos": [{"uri": "messages/inbox/chat_1/photos/1.jpg", "creation_timestamp": 1614878525}]}
//	]}
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	thserrors "github.com/five82/thumbsync/internal/errors"
)

// DateLayout is exiftool's date format.
const DateLayout = "2006:01:02 15:04:05"

// Kind is the attachment list a media entry came from.
type Kind string

const (
	KindPhoto Kind = "photos"
	KindVideo Kind = "videos"
	KindGIF   Kind = "gifs"
)

// Kinds lists the attachment lists in report order.
var Kinds = []Kind{KindPhoto, KindVideo, KindGIF}

// Media is one attachment referenced by a manifest.
type Media struct {
	Kind      Kind
	URI       string
	Timestamp string // exiftool formatted capture date
}

type rawMedia struct {
	URI               string       `json:"uri"`
	CreationTimestamp *json.Number `json:"creation_timestamp"`
}

type rawMessage struct {
	TimestampMS *json.Number `json:"timestamp_ms"`
	Photos      []rawMedia   `json:"photos"`
	Videos      []rawMedia   `json:"videos"`
	GIFs        []rawMedia   `json:"gifs"`
}

type rawManifest struct {
	Messages *[]rawMessage `json:"messages"`
}

// Parse decodes a manifest. Any valid JSON document that is not an object
// with a "messages" key is not a conversation manifest and yields no media.
// Timestamps are rendered in loc.
func Parse(data []byte, loc *time.Location) ([]Media, error) {
	var top json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, thserrors.NewJSONParseError("invalid manifest", err)
	}
	if trimmed := bytes.TrimSpace(top); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, nil
	}

	var doc rawManifest
	dec := json.NewDecoder(bytes.NewReader(top))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, thserrors.NewJSONParseError("invalid manifest", err)
	}
	if doc.Messages == nil {
		return nil, nil
	}

	var photos, videos, gifs []Media
	for i, msg := range *doc.Messages {
		lists := []struct {
			kind Kind
			raw  []rawMedia
			dst  *[]Media
		}{
			{KindPhoto, msg.Photos, &photos},
			{KindVideo, msg.Videos, &videos},
			{KindGIF, msg.GIFs, &gifs},
		}
		for _, l := range lists {
			for _, m := range l.raw {
				stamp := m.CreationTimestamp
				if stamp == nil {
					stamp = msg.TimestampMS
				}
				if stamp == nil {
					return nil, thserrors.NewJSONParseError(
						fmt.Sprintf("message %d: %s entry %q has no creation_timestamp", i, l.kind, m.URI), nil)
				}
				ts, err := FormatTimestamp(stamp.String(), loc)
				if err != nil {
					return nil, thserrors.NewJSONParseError(fmt.Sprintf("message %d: %s", i, m.URI), err)
				}
				*l.dst = append(*l.dst, Media{Kind: l.kind, URI: m.URI, Timestamp: ts})
			}
		}
	}

	out := make([]Media, 0, len(photos)+len(videos)+len(gifs))
	out = append(out, photos...)
	out = append(out, videos...)
	return append(out, gifs...), nil
}

// FormatTimestamp reads the first ten digits of raw as Unix seconds, which
// accepts both second and millisecond stamps, and formats them in loc.
func FormatTimestamp(raw string, loc *time.Location) (string, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		raw = raw[:i]
	}
	if len(raw) > 10 {
		raw = raw[:10]
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(secs, 0).In(loc).Format(DateLayout), nil
}

// Tags returns the exiftool assignments for m, plus extra arguments that
// must precede them.
func Tags(m Media) (map[string]string, []string) {
	tags := map[string]string{
		"FileCreateDate":   m.Timestamp,
		"CreationDate":     m.Timestamp,
		"DateTimeOriginal": m.Timestamp,
	}
	if m.Kind != KindVideo {
		return tags, nil
	}
	tags["CreateDate"] = m.Timestamp
	tags["ModifyDate"] = m.Timestamp
	tags["TrackCreateDate"] = m.Timestamp
	return tags, []string{"-api", "QuickTimeUTC"}
}

// ResolvePath maps a manifest uri to a file under root. The uri's first
// component names the export's top folder and is replaced by root. The
// composed (NFC) and decomposed (NFD) spellings are tried because exports
// are often unpacked on a different OS than the one that wrote them.
func ResolvePath(root, uri string) (string, bool) {
	parts := strings.Split(filepath.ToSlash(uri), "/")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	rel := filepath.FromSlash(strings.Join(parts, "/"))
	primary := filepath.Join(root, rel)

	for _, candidate := range []string{primary, norm.NFC.String(primary), norm.NFD.String(primary)} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return primary, false
}

// FindManifests returns every .json file under root in lexical walk order.
func FindManifests(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, thserrors.NewIOError(fmt.Sprintf("cannot walk %s", root), err)
	}
	return files, nil
}

// Load reads and parses one manifest file.
func Load(path string, loc *time.Location) ([]Media, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, thserrors.NewIOError(fmt.Sprintf("cannot read %s", path), err)
	}
	media, err := Parse(data, loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return media, nil
}
