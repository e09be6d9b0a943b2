package index

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/navychen2003/javen-sub011/core/codec"
	"github.com/navychen2003/javen-sub011/core/document"
	"github.com/navychen2003/javen-sub011/core/store"
	"github.com/navychen2003/javen-sub011/core/util"
)

// index/FieldInfo.java

/*
Access to the Field Info file that describes document fields and
whether or not they are indexed. Each segment has a separate Field
Info file. Objects of this class are thread-safe for multiple readers,
but only one thread can be adding documents at a time, with no other
reader or writer threads accessing this object.
*/
type FieldInfo struct {
	// Field's name
	Name string
	// Internal field number
	Number int

	indexed      bool
	stored       bool
	indexOptions document.IndexOptions
}

func newFieldInfo(name string, number int, indexed, stored bool, indexOptions document.IndexOptions) *FieldInfo {
	fi := &FieldInfo{Name: name, Number: number, indexed: indexed, stored: stored}
	if indexed {
		fi.indexOptions = indexOptions
	}
	return fi
}

func (fi *FieldInfo) update(indexed, stored bool, indexOptions document.IndexOptions) {
	// once indexed or stored, always
	fi.indexed = fi.indexed || indexed
	fi.stored = fi.stored || stored
	if fi.indexed {
		switch {
		case fi.indexOptions == 0:
			fi.indexOptions = indexOptions
		case indexOptions != 0 && indexOptions < fi.indexOptions:
			// downgrade: once freqs are omitted they are omitted for good
			fi.indexOptions = indexOptions
		}
	}
}

func (fi *FieldInfo) IsIndexed() bool                     { return fi.indexed }
func (fi *FieldInfo) IsStored() bool                      { return fi.stored }
func (fi *FieldInfo) IndexOptions() document.IndexOptions { return fi.indexOptions }
func (fi *FieldInfo) HasFreqs() bool {
	return fi.indexed && fi.indexOptions >= document.INDEX_OPT_DOCS_AND_FREQS
}

func (fi *FieldInfo) String() string {
	return fmt.Sprintf("%v(#%v,indexed=%v,stored=%v,%v)",
		fi.Name, fi.Number, fi.indexed, fi.stored, fi.indexOptions)
}

// index/FieldInfos.java

// Collection of FieldInfo(s) (accessible by number or by name)
type FieldInfos struct {
	hasFreq    bool
	hasIndexed bool
	hasStored  bool

	byNumber map[int]*FieldInfo
	byName   map[string]*FieldInfo
	values   []*FieldInfo // sorted by number
}

func NewFieldInfos(infos []*FieldInfo) *FieldInfos {
	self := &FieldInfos{
		byNumber: make(map[int]*FieldInfo),
		byName:   make(map[string]*FieldInfo),
	}
	for _, info := range infos {
		if prev, ok := self.byNumber[info.Number]; ok {
			panic(fmt.Sprintf("duplicate field numbers: %v and %v have: %v", prev.Name, info.Name, info.Number))
		}
		self.byNumber[info.Number] = info
		if prev, ok := self.byName[info.Name]; ok {
			panic(fmt.Sprintf("duplicate field names: %v and %v have: %v", prev.Number, info.Number, info.Name))
		}
		self.byName[info.Name] = info

		self.hasFreq = self.hasFreq || info.HasFreqs()
		self.hasIndexed = self.hasIndexed || info.indexed
		self.hasStored = self.hasStored || info.stored
		self.values = append(self.values, info)
	}
	sort.Slice(self.values, func(i, j int) bool {
		return self.values[i].Number < self.values[j].Number
	})
	return self
}

func (fis *FieldInfos) FieldInfoByName(name string) *FieldInfo {
	return fis.byName[name]
}

func (fis *FieldInfos) FieldInfoByNumber(number int) *FieldInfo {
	return fis.byNumber[number]
}

func (fis *FieldInfos) Size() int              { return len(fis.values) }
func (fis *FieldInfos) Values() []*FieldInfo   { return fis.values }
func (fis *FieldInfos) HasFreq() bool          { return fis.hasFreq }
func (fis *FieldInfos) HasIndexedFields() bool { return fis.hasIndexed }
func (fis *FieldInfos) HasStoredFields() bool  { return fis.hasStored }

func (fis *FieldInfos) String() string {
	return fmt.Sprintf("%v", fis.values)
}

/*
Global field name to number mapping, shared by every DWPT of one
IndexWriter, so a field keeps the same number in every segment the
writer produces.
*/
type FieldNumbers struct {
	sync.Locker
	numberToName map[int]string
	nameToNumber map[string]int
	// TODO: catch an attempt to turn freqs back on after they were
	// omitted; today the downgrade is silent
	lowestUnassignedFieldNumber int
}

func newFieldNumbers() *FieldNumbers {
	return &FieldNumbers{
		Locker:       &sync.Mutex{},
		nameToNumber: make(map[string]int),
		numberToName: make(map[int]string),
	}
}

/*
Returns the global field number for the given field name. If the name
does not exist yet it tries to add it with the given preferred field
number assigned if possible otherwise the first unassigned field
number is used as the field number.
*/
func (fn *FieldNumbers) addOrGet(name string, preferredNumber int) int {
	fn.Lock()
	defer fn.Unlock()
	number, ok := fn.nameToNumber[name]
	if !ok {
		_, taken := fn.numberToName[preferredNumber]
		if preferredNumber != -1 && !taken {
			// cool - we can use this number globally
			number = preferredNumber
		} else {
			// find a new FieldNumber
			for {
				if _, taken = fn.numberToName[fn.lowestUnassignedFieldNumber]; !taken {
					break
				}
				fn.lowestUnassignedFieldNumber++
			}
			number = fn.lowestUnassignedFieldNumber
		}
		fn.numberToName[number] = name
		fn.nameToNumber[name] = number
	}
	return number
}

func (fn *FieldNumbers) clear() {
	fn.Lock()
	defer fn.Unlock()
	fn.numberToName = make(map[int]string)
	fn.nameToNumber = make(map[string]int)
	fn.lowestUnassignedFieldNumber = 0
}

type FieldInfosBuilder struct {
	byName             map[string]*FieldInfo
	globalFieldNumbers *FieldNumbers
}

func newFieldInfosBuilder(globalFieldNumbers *FieldNumbers) *FieldInfosBuilder {
	assert(globalFieldNumbers != nil)
	return &FieldInfosBuilder{
		byName:             make(map[string]*FieldInfo),
		globalFieldNumbers: globalFieldNumbers,
	}
}

// Adds every field of other, keeping its numbers when possible.
func (b *FieldInfosBuilder) addAll(other *FieldInfos) {
	for _, fi := range other.values {
		b.addOrUpdate(fi.Name, fi.Number, fi.indexed, fi.stored, fi.indexOptions)
	}
}

func (b *FieldInfosBuilder) addOrUpdate(name string, preferredNumber int,
	indexed, stored bool, indexOptions document.IndexOptions) *FieldInfo {

	fi, ok := b.byName[name]
	if !ok {
		number := b.globalFieldNumbers.addOrGet(name, preferredNumber)
		fi = newFieldInfo(name, number, indexed, stored, indexOptions)
		b.byName[name] = fi
	} else {
		fi.update(indexed, stored, indexOptions)
	}
	return fi
}

// Adds or updates the info of a field from its type.
func (b *FieldInfosBuilder) addField(name string, ft document.IndexableFieldType) *FieldInfo {
	return b.addOrUpdate(name, -1, ft.Indexed(), ft.Stored(), ft.IndexOptions())
}

func (b *FieldInfosBuilder) fieldInfo(name string) *FieldInfo {
	return b.byName[name]
}

func (b *FieldInfosBuilder) finish() *FieldInfos {
	infos := make([]*FieldInfo, 0, len(b.byName))
	for _, v := range b.byName {
		infos = append(infos, v)
	}
	return NewFieldInfos(infos)
}

// Field infos file (.fnm)

const (
	FIELD_INFOS_EXTENSION     = "fnm"
	FIELD_INFOS_CODEC_NAME    = "FieldInfos"
	FIELD_INFOS_VERSION_START = 0

	FIELD_INFOS_VERSION_CURRENT = FIELD_INFOS_VERSION_START

	FI_IS_INDEXED  = 0x1
	FI_IS_STORED   = 0x2
	FI_OMIT_FREQS  = 0x4
	FI_KNOWN_FLAGS = FI_IS_INDEXED | FI_IS_STORED | FI_OMIT_FREQS
)

/*
Field infos file:

	FieldInfos (.fnm) --> Header,FieldsCount,<FieldName,FieldNumber,FieldBits>^FieldsCount,Footer
	FieldsCount, FieldNumber --> VInt
	FieldBits --> Byte: 0x1 indexed, 0x2 stored, 0x4 term freqs omitted
*/
func writeFieldInfos(dir store.Directory, segName string, infos *FieldInfos, ctx store.IOContext) (err error) {
	fileName := util.SegmentFileName(segName, "", FIELD_INFOS_EXTENSION)
	output, err := dir.CreateOutput(fileName, ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, output)
	}()

	if err = codec.WriteHeader(output, FIELD_INFOS_CODEC_NAME, FIELD_INFOS_VERSION_CURRENT); err != nil {
		return err
	}
	if err = output.WriteVInt(int32(infos.Size())); err != nil {
		return err
	}
	for _, fi := range infos.values {
		var bits byte
		if fi.indexed {
			bits |= FI_IS_INDEXED
			if fi.indexOptions == document.INDEX_OPT_DOCS_ONLY {
				bits |= FI_OMIT_FREQS
			}
		}
		if fi.stored {
			bits |= FI_IS_STORED
		}
		if err = output.WriteString(fi.Name); err == nil {
			if err = output.WriteVInt(int32(fi.Number)); err == nil {
				err = output.WriteByte(bits)
			}
		}
		if err != nil {
			return err
		}
	}
	return codec.WriteFooter(output)
}

func readFieldInfos(dir store.Directory, segName string, ctx store.IOContext) (fis *FieldInfos, err error) {
	fileName := util.SegmentFileName(segName, "", FIELD_INFOS_EXTENSION)
	input, err := dir.OpenChecksumInput(fileName, ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, input)
	}()

	if _, err = codec.CheckHeader(input, FIELD_INFOS_CODEC_NAME,
		FIELD_INFOS_VERSION_START, FIELD_INFOS_VERSION_CURRENT); err != nil {
		return nil, err
	}
	size, err := input.ReadVInt()
	if err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, errors.Wrapf(ErrCorruptIndex, "invalid field count: %v (resource=%v)", size, input)
	}
	infos := make([]*FieldInfo, size)
	for i := range infos {
		name, err := input.ReadString()
		if err != nil {
			return nil, err
		}
		number, err := input.ReadVInt()
		if err != nil {
			return nil, err
		}
		if number < 0 {
			return nil, errors.Wrapf(ErrCorruptIndex,
				"invalid field number for field: %v, number=%v (resource=%v)", name, number, input)
		}
		bits, err := input.ReadByte()
		if err != nil {
			return nil, err
		}
		if bits&^FI_KNOWN_FLAGS != 0 {
			return nil, errors.Wrapf(ErrCorruptIndex, "unknown field bits %x (resource=%v)", bits, input)
		}
		indexOptions := document.INDEX_OPT_DOCS_AND_FREQS
		if bits&FI_OMIT_FREQS != 0 {
			indexOptions = document.INDEX_OPT_DOCS_ONLY
		}
		infos[i] = newFieldInfo(name, int(number),
			bits&FI_IS_INDEXED != 0, bits&FI_IS_STORED != 0, indexOptions)
	}
	if _, err = codec.CheckFooter(input); err != nil {
		return nil, err
	}
	defer func() {
		// duplicate names/numbers on disk are corruption, not a bug
		if r := recover(); r != nil {
			fis, err = nil, errors.Wrapf(ErrCorruptIndex, "%v (resource=%v)", r, input)
		}
	}()
	return NewFieldInfos(infos), nil
}
