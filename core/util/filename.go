package util

import (
	"regexp"
	"strconv"
	"strings"
)

// index/IndexFileNames.java

const (
	// Name of the index segment file
	SEGMENTS = "segments"
	// Name of the segments file written by prepareCommit and renamed
	// to SEGMENTS_N by the second commit phase.
	PENDING_SEGMENTS = "pending_segments"
	// Name of the generation reference file name
	SEGMENTS_GEN = "segments.gen"
)

/*
Computes the full file name from base, extension and generation. If
the generation is -1, the file name is "". If it's 0, the file name is
<base>.<ext>. Otherwise the generation is appended in base 36.
*/
func FileNameFromGeneration(base, ext string, gen int64) string {
	switch {
	case gen == -1:
		return ""
	case gen == 0:
		return SegmentFileName(base, "", ext)
	default:
		assert(gen > 0)
		name := base + "_" + strconv.FormatInt(gen, 36)
		if len(ext) > 0 {
			name += "." + ext
		}
		return name
	}
}

/*
Returns a file name that includes the given segment name, suffix and
extension: <segmentName>(_<suffix>)(.<ext>).
*/
func SegmentFileName(name, suffix, ext string) string {
	if len(ext) > 0 || len(suffix) > 0 {
		assert(len(ext) == 0 || ext[0] != '.')
		var b strings.Builder
		b.WriteString(name)
		if len(suffix) > 0 {
			b.WriteString("_")
			b.WriteString(suffix)
		}
		if len(ext) > 0 {
			b.WriteString(".")
			b.WriteString(ext)
		}
		return b.String()
	}
	return name
}

func indexOfSegmentName(filename string) int {
	// If it is a generation file, there's an '_' after the first character
	if idx := strings.Index(filename[1:], "_"); idx >= 0 {
		return idx + 1
	}
	// If it's not, strip everything that's before the '.'
	return strings.Index(filename, ".")
}

func StripSegmentName(filename string) string {
	if idx := indexOfSegmentName(filename); idx != -1 {
		return filename[idx:]
	}
	return filename
}

func ParseSegmentName(filename string) string {
	if idx := indexOfSegmentName(filename); idx != -1 {
		return filename[0:idx]
	}
	return filename
}

func StripExtension(filename string) string {
	if idx := strings.Index(filename, "."); idx != -1 {
		return filename[0:idx]
	}
	return filename
}

/* Returns the generation from a per-segment file name, or 0 if there is no generation. */
func ParseGeneration(filename string) int64 {
	assert(strings.HasPrefix(filename, "_"))
	parts := strings.Split(StripExtension(filename)[1:], "_")
	if len(parts) == 2 {
		if v, err := strconv.ParseInt(parts[1], 36, 64); err == nil {
			return v
		}
	}
	return 0
}

/*
Parses the generation off the segments file name (segments_N or
pending_segments_N). Returns -1 when the name is not a segments file.
*/
func GenerationFromSegmentsFileName(fileName string) int64 {
	for _, prefix := range []string{SEGMENTS, PENDING_SEGMENTS} {
		if fileName == prefix {
			return 0
		}
		if strings.HasPrefix(fileName, prefix+"_") {
			if v, err := strconv.ParseInt(fileName[len(prefix)+1:], 36, 64); err == nil {
				return v
			}
			return -1
		}
	}
	return -1
}

// Returns the name of the segment numbered counter: "_" plus the
// counter in base 36.
func SegmentNameFromCounter(counter int) string {
	return "_" + strconv.FormatInt(int64(counter), 36)
}

/*
All files created for a segment match this pattern.
*/
var CODEC_FILE_PATTERN = regexp.MustCompile("^_[a-z0-9]+(_.*)?\\..*$")

func IsSegmentsFile(name string) bool {
	return strings.HasPrefix(name, SEGMENTS+"_") && name != SEGMENTS_GEN
}

func IsPendingSegmentsFile(name string) bool {
	return strings.HasPrefix(name, PENDING_SEGMENTS+"_")
}
