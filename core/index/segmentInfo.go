package index

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/navychen2003/javen-sub011/core/codec"
	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

// index/SegmentInfo.java

// Used by some member fields to mean not present (e.g., norms,
// deletions).
const NO = -1

// Used by some member fields to mean present (e.g., norms, deletions).
const YES = 1

/*
Information about a segment such as it's name, directory, and files
related to the segment.
*/
type SegmentInfo struct {
	// Unique segment name in the directory.
	Name string
	// number of docs in seg
	docCount int
	// Where this segment resides.
	dir store.Directory

	isCompoundFile bool

	diagnostics map[string]string
	files       map[string]bool // must use CheckFileNames()
	version     string
}

func NewSegmentInfo(dir store.Directory, version, name string, docCount int,
	isCompoundFile bool, diagnostics map[string]string) *SegmentInfo {

	assert(docCount >= -1)
	return &SegmentInfo{
		Name:           name,
		docCount:       docCount,
		dir:            dir,
		isCompoundFile: isCompoundFile,
		diagnostics:    diagnostics,
		version:        version,
	}
}

// Returns number of documents in this segment (deletions are not
// taken into account).
func (si *SegmentInfo) DocCount() int {
	assert2(si.docCount != -1, "docCount isn't set yet")
	return si.docCount
}

func (si *SegmentInfo) setDocCount(docCount int) {
	assert2(si.docCount == -1, "docCount was already set")
	si.docCount = docCount
}

func (si *SegmentInfo) Dir() store.Directory           { return si.dir }
func (si *SegmentInfo) IsCompoundFile() bool           { return si.isCompoundFile }
func (si *SegmentInfo) Version() string                { return si.version }
func (si *SegmentInfo) Diagnostics() map[string]string { return si.diagnostics }

func (si *SegmentInfo) setUseCompoundFile(isCompoundFile bool) {
	si.isCompoundFile = isCompoundFile
}

// Returns all files referenced by this SegmentInfo.
func (si *SegmentInfo) Files() []string {
	assert2(si.files != nil, "files were not computed yet")
	ans := make([]string, 0, len(si.files))
	for name := range si.files {
		ans = append(ans, name)
	}
	sort.Strings(ans)
	return ans
}

// Sets the files written for this segment.
func (si *SegmentInfo) SetFiles(files []string) {
	si.files = make(map[string]bool)
	si.AddFiles(files)
}

func (si *SegmentInfo) AddFiles(files []string) {
	si.CheckFileNames(files)
	for _, f := range files {
		si.files[f] = true
	}
}

func (si *SegmentInfo) AddFile(file string) {
	si.AddFiles([]string{file})
}

func (si *SegmentInfo) CheckFileNames(files []string) {
	for _, file := range files {
		if !util.CODEC_FILE_PATTERN.MatchString(file) {
			panic(fmt.Sprintf("invalid codec filename '%v', must match: %v", file, util.CODEC_FILE_PATTERN))
		}
	}
}

func (si *SegmentInfo) String() string {
	return si.StringOf(si.dir, 0)
}

/*
Used for debugging. Format may suddenly change.

Current format looks like _a(4.9.0):c45/4, which means the segment's
name is _a; it was created with version 4.9.0; it's using compound
file format (would be C if not compound); it has 45 documents; it has
4 deletions (this part is left off when there are no deletions).
*/
func (si *SegmentInfo) StringOf(dir store.Directory, delCount int) string {
	var buf bytes.Buffer
	buf.WriteString(si.Name)
	buf.WriteString("(")
	if si.version == "" {
		buf.WriteString("?")
	} else {
		buf.WriteString(si.version)
	}
	buf.WriteString("):")
	if si.isCompoundFile {
		buf.WriteString("c")
	} else {
		buf.WriteString("C")
	}
	if si.dir != dir {
		buf.WriteString("x")
	}
	buf.WriteString(strconv.Itoa(si.docCount))
	if delCount != 0 {
		buf.WriteString("/")
		buf.WriteString(strconv.Itoa(delCount))
	}
	return buf.String()
}

// Segment info file (.si)

const (
	SI_EXTENSION       = "si"
	SI_CODEC_NAME      = "SegmentInfo"
	SI_VERSION_START   = 0
	SI_VERSION_CURRENT = SI_VERSION_START
)

/*
Segment info file:

	.si --> Header,SegVersion,SegSize,IsCompoundFile,Diagnostics,Files,Footer
	SegVersion --> String
	SegSize --> Int32
	IsCompoundFile --> Int8: YES or NO
	Diagnostics --> map<String,String>
	Files --> Set<String>

The .si file itself is never part of a compound file.
*/
func writeSegmentInfo(dir store.Directory, si *SegmentInfo, ctx store.IOContext) (err error) {
	fileName := util.SegmentFileName(si.Name, "", SI_EXTENSION)
	si.AddFile(fileName)

	output, err := dir.CreateOutput(fileName, ctx)
	if err != nil {
		return err
	}
	success := false
	defer func() {
		if !success {
			util.CloseWhileSuppressingError(output)
			util.DeleteFilesIgnoringErrors(si.dir, fileName)
		} else {
			err = output.Close()
		}
	}()

	if err = codec.WriteHeader(output, SI_CODEC_NAME, SI_VERSION_CURRENT); err != nil {
		return err
	}
	// write the version as string
	if err = output.WriteString(si.version); err != nil {
		return err
	}
	if err = output.WriteInt(int32(si.docCount)); err != nil {
		return err
	}
	flag := byte(NO & 0xff)
	if si.isCompoundFile {
		flag = YES
	}
	if err = output.WriteByte(flag); err != nil {
		return err
	}
	if err = output.WriteStringStringMap(si.diagnostics); err != nil {
		return err
	}
	if err = output.WriteStringSet(si.files); err != nil {
		return err
	}
	if err = codec.WriteFooter(output); err != nil {
		return err
	}
	success = true
	return nil
}

func readSegmentInfo(dir store.Directory, segment string, ctx store.IOContext) (si *SegmentInfo, err error) {
	fileName := util.SegmentFileName(segment, "", SI_EXTENSION)
	input, err := dir.OpenChecksumInput(fileName, ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, input)
	}()

	if _, err = codec.CheckHeader(input, SI_CODEC_NAME, SI_VERSION_START, SI_VERSION_CURRENT); err != nil {
		return nil, err
	}
	version, err := input.ReadString()
	if err != nil {
		return nil, err
	}
	docCount, err := input.ReadInt()
	if err != nil {
		return nil, err
	}
	if docCount < 0 {
		return nil, errors.Wrapf(ErrCorruptIndex, "invalid docCount: %v (resource=%v)", docCount, input)
	}
	flag, err := input.ReadByte()
	if err != nil {
		return nil, err
	}
	isCompoundFile := flag == YES
	diagnostics, err := input.ReadStringStringMap()
	if err != nil {
		return nil, err
	}
	files, err := input.ReadStringSet()
	if err != nil {
		return nil, err
	}
	if _, err = codec.CheckFooter(input); err != nil {
		return nil, err
	}

	si = NewSegmentInfo(dir, version, segment, int(docCount), isCompoundFile, diagnostics)
	si.files = make(map[string]bool)
	for f := range files {
		if !util.CODEC_FILE_PATTERN.MatchString(f) {
			return nil, errors.Wrapf(ErrCorruptIndex, "invalid file name %v (resource=%v)", f, input)
		}
		si.files[f] = true
	}
	return si, nil
}
