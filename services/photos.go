package services

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"mediadeck/types"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	"github.com/spf13/afero"
)

// PhotoService turns a picked image into everything the viewer displays
type PhotoService interface {
	Load(path string) *types.PhotoView
	Decode(r io.ReadSeeker) *types.PhotoView
}

type photoService struct {
	fs          afero.Fs
	previewSize uint
	signedRefs  bool
}

// NewPhotoService creates a photo service reading from fs. Previews are scaled to
// fit within previewSize x previewSize. Coordinates are the raw tag magnitudes
// unless signedRefs is set, in which case S and W references negate them.
func NewPhotoService(fs afero.Fs, previewSize uint, signedRefs bool) PhotoService {
	return &photoService{fs: fs, previewSize: previewSize, signedRefs: signedRefs}
}

// Load opens path and decodes it. Any failure leaves the view on placeholders.
func (s *photoService) Load(path string) *types.PhotoView {
	f, err := s.fs.Open(path)
	if err != nil {
		log.WithError(err).WithField("path", path).Debug("open photo")
		view := newPhotoView()
		view.Name = filepath.Base(path)
		return view
	}
	defer f.Close()

	view := s.Decode(f)
	view.Name = filepath.Base(path)
	return view
}

// Decode extracts the bitmap, the EXIF summary and the location from r
func (s *photoService) Decode(r io.ReadSeeker) *types.PhotoView {
	view := newPhotoView()
	logctx := log.WithField("photo", view.ID)

	img, format, err := image.Decode(r)
	if err != nil {
		logctx.WithError(err).Debug("decode image")
	} else {
		view.Image = &types.ImageInfo{
			Width:  img.Bounds().Dx(),
			Height: img.Bounds().Dy(),
			Format: format,
			Bitmap: img,
		}
		if preview, err := s.preview(img); err != nil {
			logctx.WithError(err).Debug("encode preview")
		} else {
			view.Image.Preview = preview
		}
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		logctx.WithError(err).Debug("rewind photo")
		return view
	}
	x, err := exif.Decode(r)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		logctx.WithError(err).Debug("no exif properties")
		return view
	}

	applyProperties(view, x, s.signedRefs)
	return view
}

func newPhotoView() *types.PhotoView {
	return &types.PhotoView{
		ID:       uuid.New().String(),
		PickedAt: time.Now(),
	}
}

func (s *photoService) preview(img image.Image) ([]byte, error) {
	thumb := resize.Thumbnail(s.previewSize, s.previewSize, img, resize.Lanczos3)
	var b bytes.Buffer
	if err := jpeg.Encode(&b, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// applyProperties fills the metadata, GPS and timestamp fields from a decoded
// property set.
func applyProperties(view *types.PhotoView, x *exif.Exif, signedRefs bool) {
	view.Tags = collectTags(x)

	if hasGroup(x, exif.ExifIFDPointer) {
		view.Metadata = renderMetadata(view.Tags)
	}

	if hasGroup(x, exif.GPSInfoIFDPointer) {
		view.GPS = &types.GPS{
			Latitude:  coordinate(x, exif.GPSLatitude),
			Longitude: coordinate(x, exif.GPSLongitude),
		}
		if signedRefs {
			applyRef(x, view.GPS.Latitude, exif.GPSLatitudeRef, "S")
			applyRef(x, view.GPS.Longitude, exif.GPSLongitudeRef, "W")
		}
		view.Location = view.GPS.Location()
		view.MapURL = view.Location.MapURL()
	}

	if t, err := x.DateTime(); err == nil {
		view.TakenAt = &t
	}
}

func hasGroup(x *exif.Exif, pointer exif.FieldName) bool {
	_, err := x.Get(pointer)
	return err == nil
}

var pointerFields = map[exif.FieldName]bool{
	exif.ExifIFDPointer:             true,
	exif.GPSInfoIFDPointer:          true,
	exif.InteroperabilityIFDPointer: true,
}

type tagCollector []types.Tag

func (c *tagCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if pointerFields[name] {
		return nil
	}
	*c = append(*c, types.Tag{
		Group: tagGroup(name, tag),
		Name:  string(name),
		Value: formatTag(tag),
	})
	return nil
}

// collectTags returns every property sorted by group and name
func collectTags(x *exif.Exif) []types.Tag {
	var tags tagCollector
	if err := x.Walk(&tags); err != nil {
		log.WithError(err).Debug("walk exif tags")
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Group != tags[j].Group {
			return tags[i].Group < tags[j].Group
		}
		return tags[i].Name < tags[j].Name
	})
	return tags
}

// tagGroup classifies a field. EXIF sub-IFD tags all sit at or above
// ExposureTime (0x829A); GPS names carry their prefix.
func tagGroup(name exif.FieldName, tag *tiff.Tag) string {
	switch {
	case strings.HasPrefix(string(name), "GPS"):
		return "gps"
	case tag.Id >= 0x829A:
		return "exif"
	default:
		return "image"
	}
}

func renderMetadata(tags []types.Tag) string {
	var lines []string
	for _, t := range tags {
		if t.Group == "exif" {
			lines = append(lines, t.Name+"="+t.Value)
		}
	}
	if len(lines) == 0 {
		return "(no exif tags)"
	}
	return strings.Join(lines, "\n")
}

func formatTag(tag *tiff.Tag) string {
	switch tag.Format() {
	case tiff.StringVal:
		s, err := tag.StringVal()
		if err != nil {
			return tag.String()
		}
		return strings.TrimRight(s, "\x00 ")
	case tiff.RatVal:
		vals := make([]string, 0, tag.Count)
		for i := 0; i < int(tag.Count); i++ {
			num, den, err := tag.Rat2(i)
			if err != nil {
				return tag.String()
			}
			vals = append(vals, fmt.Sprintf("%d/%d", num, den))
		}
		return strings.Join(vals, ", ")
	case tiff.IntVal:
		vals := make([]string, 0, tag.Count)
		for i := 0; i < int(tag.Count); i++ {
			v, err := tag.Int(i)
			if err != nil {
				return tag.String()
			}
			vals = append(vals, strconv.Itoa(v))
		}
		return strings.Join(vals, ", ")
	case tiff.FloatVal:
		vals := make([]string, 0, tag.Count)
		for i := 0; i < int(tag.Count); i++ {
			v, err := tag.Float(i)
			if err != nil {
				return tag.String()
			}
			vals = append(vals, strconv.FormatFloat(v, 'g', -1, 64))
		}
		return strings.Join(vals, ", ")
	default:
		return tag.String()
	}
}

// coordinate reads a degrees/minutes/seconds triple as decimal degrees.
// It returns nil when the tag is missing or malformed.
func coordinate(x *exif.Exif, field exif.FieldName) *float64 {
	tag, err := x.Get(field)
	if err != nil || tag.Format() != tiff.RatVal || tag.Count == 0 {
		return nil
	}

	var value float64
	scale := 1.0
	for i := 0; i < int(tag.Count) && i < 3; i++ {
		num, den, err := tag.Rat2(i)
		if err != nil || den == 0 {
			return nil
		}
		value += float64(num) / float64(den) / scale
		scale *= 60
	}

	return &value
}

// applyRef negates value when the hemisphere reference is negativeRef
func applyRef(x *exif.Exif, value *float64, refField exif.FieldName, negativeRef string) {
	if value == nil {
		return
	}
	ref, err := x.Get(refField)
	if err != nil {
		return
	}
	if s, err := ref.StringVal(); err == nil && strings.HasPrefix(strings.ToUpper(s), negativeRef) {
		*value = -*value
	}
}
