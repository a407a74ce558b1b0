package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"mediadeck/types"

	"github.com/apex/log"
	"github.com/dhowden/tag"
	"github.com/spf13/afero"
)

// Library defines methods for discovering and serving bundled audio files
type Library interface {
	Scan(rootPath string, onFile func(path string)) ([]types.AudioFile, error)
	ExtractAudioMetadata(filePath string) *types.AudioMetadata
	ValidateFilePath(path string) error
	GetContentType(filePath string) string
	Fs() afero.Fs
}

// library implements the Library interface over an afero filesystem
type library struct {
	fs         afero.Fs
	extensions []string
}

// NewLibrary creates a library matching the given extensions, earliest first in
// priority. Defaults to ".mp3".
func NewLibrary(fs afero.Fs, extensions ...string) Library {
	if len(extensions) == 0 {
		extensions = []string{".mp3"}
	}
	return &library{fs: fs, extensions: extensions}
}

// LoadTracks is the one-time startup discovery step. A missing or unreadable
// root yields an empty list and a warning rather than an error.
func LoadTracks(lib Library, rootPath string, onFile func(path string)) []types.AudioFile {
	logctx := log.WithField("root", rootPath)

	if ok, err := afero.DirExists(lib.Fs(), rootPath); err != nil || !ok {
		logctx.Warn("library location is not a readable directory")
		return []types.AudioFile{}
	}

	files, err := lib.Scan(rootPath, onFile)
	if err != nil {
		logctx.WithError(err).Warn("scan library")
		return []types.AudioFile{}
	}
	logctx.WithField("count", len(files)).Info("library loaded")
	return files
}

func (l *library) Fs() afero.Fs {
	return l.fs
}

// matchExtension returns the configured extension name ends with, or ""
func (l *library) matchExtension(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range l.extensions {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return ""
}

// Scan recursively scans a directory for audio files, ordered by path
func (l *library) Scan(rootPath string, onFile func(path string)) ([]types.AudioFile, error) {
	var allFiles []types.AudioFile

	err := afero.Walk(l.fs, rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.WithError(err).WithField("path", path).Warn("access path")
			return nil
		}
		if info.IsDir() {
			return nil
		}

		ext := l.matchExtension(info.Name())
		if ext == "" {
			return nil
		}
		if onFile != nil {
			onFile(path)
		}

		relativePath, err := filepath.Rel(rootPath, path)
		if err != nil {
			relativePath = path
		}
		relativePath = filepath.ToSlash(relativePath)

		allFiles = append(allFiles, types.AudioFile{
			Filename: info.Name(),
			Path:     relativePath,
			Size:     info.Size(),
			Format:   strings.TrimPrefix(ext, "."),
			Metadata: l.readMetadata(path, relativePath),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return l.applyFormatPriority(allFiles), nil
}

// applyFormatPriority keeps one file per base path, preferring the extension
// listed first. The result is sorted by path.
func (l *library) applyFormatPriority(files []types.AudioFile) []types.AudioFile {
	rank := make(map[string]int, len(l.extensions))
	for i, ext := range l.extensions {
		rank[strings.TrimPrefix(ext, ".")] = i
	}

	best := make(map[string]types.AudioFile)
	for _, file := range files {
		basePath := file.Path[:len(file.Path)-len(file.Format)-1]
		current, ok := best[basePath]
		if !ok || rank[file.Format] < rank[current.Format] {
			best[basePath] = file
		}
	}

	result := make([]types.AudioFile, 0, len(best))
	for _, file := range best {
		result = append(result, file)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Path < result[j].Path
	})
	return result
}

// GetContentType returns the appropriate MIME type for an audio file
func (l *library) GetContentType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".flac":
		return "audio/flac"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

// ExtractAudioMetadata reads tags from an audio file, falling back to the path
func (l *library) ExtractAudioMetadata(filePath string) *types.AudioMetadata {
	return l.readMetadata(filePath, filePath)
}

// readTags parses tags from r. Untagged files shorter than an ID3v1 block
// make the reader seek before the start, which some afero backends accept
// and then panic on; that is reported as an error instead.
func readTags(r io.ReadSeeker) (meta tag.Metadata, err error) {
	defer func() {
		if p := recover(); p != nil {
			meta, err = nil, fmt.Errorf("parse tags: %v", p)
		}
	}()
	return tag.ReadFrom(r)
}

// readMetadata reads tags from openPath; missing fields come from displayPath.
func (l *library) readMetadata(openPath, displayPath string) *types.AudioMetadata {
	file, err := l.fs.Open(openPath)
	if err != nil {
		log.WithError(err).WithField("path", openPath).Debug("open audio file")
		return extractMetadataFromPath(displayPath)
	}
	defer file.Close()

	meta, err := readTags(file)
	if err != nil {
		log.WithError(err).WithField("path", openPath).Debug("parse audio tags")
		return extractMetadataFromPath(displayPath)
	}

	metadata := &types.AudioMetadata{
		Title:  meta.Title(),
		Artist: meta.Artist(),
		Album:  meta.Album(),
	}
	metadata.TrackNumber, _ = meta.Track()

	if metadata.Title == "" || metadata.Artist == "" || metadata.Album == "" {
		fallback := extractMetadataFromPath(displayPath)
		if metadata.Title == "" {
			metadata.Title = fallback.Title
		}
		if metadata.Artist == "" {
			metadata.Artist = fallback.Artist
		}
		if metadata.Album == "" {
			metadata.Album = fallback.Album
		}
		if metadata.TrackNumber == 0 {
			metadata.TrackNumber = fallback.TrackNumber
		}
	}
	return metadata
}

var trackPrefix = regexp.MustCompile(`^(\d+)[\.\-\s]+(.+)`)

// extractMetadataFromPath parses Artist/Album/NN - Title.ext
func extractMetadataFromPath(filePath string) *types.AudioMetadata {
	metadata := &types.AudioMetadata{}

	parts := strings.Split(filepath.ToSlash(filePath), "/")
	if len(parts) >= 3 {
		metadata.Artist = parts[len(parts)-3]
	}
	if len(parts) >= 2 {
		metadata.Album = parts[len(parts)-2]
	}

	filename := filepath.Base(filePath)
	title := strings.TrimSuffix(filename, filepath.Ext(filename))
	if matches := trackPrefix.FindStringSubmatch(title); len(matches) > 2 {
		title = matches[2]
		if trackNum, err := strconv.Atoi(matches[1]); err == nil {
			metadata.TrackNumber = trackNum
		}
	}
	metadata.Title = title

	return metadata
}

// ValidateFilePath checks for path traversal attempts and other security issues
func (l *library) ValidateFilePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty path not allowed")
	}
	if strings.HasPrefix(path, "/") || filepath.IsAbs(path) {
		return fmt.Errorf("absolute paths not allowed")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("path traversal not allowed")
		}
	}
	return nil
}
