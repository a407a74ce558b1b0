// Package testsupport builds small in-memory media files for tests.
package testsupport

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
)

// GPSOptions describes the GPS group written into a fixture. A nil coordinate
// leaves that tag out of the group.
type GPSOptions struct {
	Latitude     *float64
	LatitudeRef  string
	Longitude    *float64
	LongitudeRef string
}

// PhotoOptions controls which property groups a fixture carries
type PhotoOptions struct {
	Width, Height int
	Make          string
	Exif          bool
	TakenAt       string // "2006:01:02 15:04:05"
	GPS           *GPSOptions
}

// Float returns a pointer to v
func Float(v float64) *float64 { return &v }

const (
	tiffASCII    = 2
	tiffShort    = 3
	tiffLong     = 4
	tiffRational = 5
	tiffByte     = 1
)

type ifdEntry struct {
	id    uint16
	typ   uint16
	count uint32
	data  []byte
}

type ifd []ifdEntry

func (d ifd) size() int {
	if len(d) == 0 {
		return 0
	}
	n := 2 + 12*len(d) + 4
	for _, e := range d {
		if len(e.data) > 4 {
			n += len(e.data) + len(e.data)%2
		}
	}
	return n
}

var le = binary.LittleEndian

func asciiEntry(id uint16, s string) ifdEntry {
	b := append([]byte(s), 0)
	return ifdEntry{id: id, typ: tiffASCII, count: uint32(len(b)), data: b}
}

func shortEntry(id uint16, v uint16) ifdEntry {
	b := make([]byte, 2)
	le.PutUint16(b, v)
	return ifdEntry{id: id, typ: tiffShort, count: 1, data: b}
}

func longEntry(id uint16, v uint32) ifdEntry {
	b := make([]byte, 4)
	le.PutUint32(b, v)
	return ifdEntry{id: id, typ: tiffLong, count: 1, data: b}
}

func degreesEntry(id uint16, v float64) ifdEntry {
	v = math.Abs(v)
	deg := math.Floor(v)
	minutes := math.Floor((v - deg) * 60)
	seconds := ((v-deg)*60 - minutes) * 60

	b := make([]byte, 24)
	le.PutUint32(b[0:], uint32(deg))
	le.PutUint32(b[4:], 1)
	le.PutUint32(b[8:], uint32(minutes))
	le.PutUint32(b[12:], 1)
	le.PutUint32(b[16:], uint32(math.Round(seconds*1000)))
	le.PutUint32(b[20:], 1000)
	return ifdEntry{id: id, typ: tiffRational, count: 3, data: b}
}

// EXIF builds a little-endian TIFF block carrying the requested groups
func EXIF(opts PhotoOptions) []byte {
	makeName := opts.Make
	if makeName == "" {
		makeName = "Mediadeck"
	}
	ifd0 := ifd{asciiEntry(0x010F, makeName)}

	var exifDir, gpsDir ifd
	if opts.Exif {
		taken := opts.TakenAt
		if taken == "" {
			taken = "2017:08:25 17:03:30"
		}
		exifDir = ifd{
			shortEntry(0x8827, 100), // ISOSpeedRatings
			asciiEntry(0x9003, taken),
		}
		ifd0 = append(ifd0, longEntry(0x8769, 0))
	}
	if g := opts.GPS; g != nil {
		gpsDir = ifd{{id: 0x0000, typ: tiffByte, count: 4, data: []byte{2, 3, 0, 0}}}
		if g.LatitudeRef != "" {
			gpsDir = append(gpsDir, asciiEntry(0x0001, g.LatitudeRef))
		}
		if g.Latitude != nil {
			gpsDir = append(gpsDir, degreesEntry(0x0002, *g.Latitude))
		}
		if g.LongitudeRef != "" {
			gpsDir = append(gpsDir, asciiEntry(0x0003, g.LongitudeRef))
		}
		if g.Longitude != nil {
			gpsDir = append(gpsDir, degreesEntry(0x0004, *g.Longitude))
		}
		ifd0 = append(ifd0, longEntry(0x8825, 0))
	}

	offset0 := 8
	offsetExif := offset0 + ifd0.size()
	offsetGPS := offsetExif + exifDir.size()
	for i := range ifd0 {
		switch ifd0[i].id {
		case 0x8769:
			le.PutUint32(ifd0[i].data, uint32(offsetExif))
		case 0x8825:
			le.PutUint32(ifd0[i].data, uint32(offsetGPS))
		}
	}

	var buf bytes.Buffer
	buf.WriteString("II")
	binary.Write(&buf, le, uint16(42))
	binary.Write(&buf, le, uint32(offset0))
	writeIFD(&buf, ifd0, offset0)
	if len(exifDir) > 0 {
		writeIFD(&buf, exifDir, offsetExif)
	}
	if len(gpsDir) > 0 {
		writeIFD(&buf, gpsDir, offsetGPS)
	}
	return buf.Bytes()
}

func writeIFD(buf *bytes.Buffer, d ifd, offset int) {
	overflow := offset + 2 + 12*len(d) + 4
	var extra bytes.Buffer

	binary.Write(buf, le, uint16(len(d)))
	for _, e := range d {
		binary.Write(buf, le, e.id)
		binary.Write(buf, le, e.typ)
		binary.Write(buf, le, e.count)
		if len(e.data) <= 4 {
			val := make([]byte, 4)
			copy(val, e.data)
			buf.Write(val)
			continue
		}
		binary.Write(buf, le, uint32(overflow+extra.Len()))
		extra.Write(e.data)
		if len(e.data)%2 == 1 {
			extra.WriteByte(0)
		}
	}
	binary.Write(buf, le, uint32(0))
	buf.Write(extra.Bytes())
}

func testImage(w, h int) image.Image {
	if w == 0 {
		w = 8
	}
	if h == 0 {
		h = 6
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 20), B: 128, A: 255})
		}
	}
	return img
}

// JPEG encodes a small JPEG. When opts carries any group an APP1 EXIF segment
// is spliced in right after the SOI marker.
func JPEG(opts PhotoOptions) []byte {
	var enc bytes.Buffer
	if err := jpeg.Encode(&enc, testImage(opts.Width, opts.Height), &jpeg.Options{Quality: 80}); err != nil {
		panic(err)
	}
	raw := enc.Bytes()
	if !opts.Exif && opts.GPS == nil && opts.Make == "" {
		return raw
	}

	payload := append([]byte("Exif\x00\x00"), EXIF(opts)...)
	var out bytes.Buffer
	out.Write(raw[:2])
	out.Write([]byte{0xFF, 0xE1})
	binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(raw[2:])
	return out.Bytes()
}

// PNG encodes a small PNG, which never carries EXIF
func PNG(w, h int) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(w, h)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// MP3 returns an ID3v2.3 tag with the given text frames followed by a few
// bytes of silence. Empty values are omitted.
func MP3(title, artist, album string) []byte {
	var frames bytes.Buffer
	writeFrame := func(id, value string) {
		if value == "" {
			return
		}
		data := append([]byte{0x00}, value...)
		frames.WriteString(id)
		binary.Write(&frames, binary.BigEndian, uint32(len(data)))
		frames.Write([]byte{0, 0})
		frames.Write(data)
	}
	writeFrame("TIT2", title)
	writeFrame("TPE1", artist)
	writeFrame("TALB", album)

	size := frames.Len()
	var out bytes.Buffer
	out.WriteString("ID3")
	out.Write([]byte{0x03, 0x00, 0x00})
	out.Write([]byte{
		byte(size>>21) & 0x7F,
		byte(size>>14) & 0x7F,
		byte(size>>7) & 0x7F,
		byte(size) & 0x7F,
	})
	out.Write(frames.Bytes())
	out.Write(make([]byte, 128))
	return out.Bytes()
}
