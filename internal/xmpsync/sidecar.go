package xmpsync

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"rawpick/internal/cullstate"
	"rawpick/internal/fileutil"
	"rawpick/internal/rawerr"
)

const (
	nsXMP       = "http://ns.adobe.com/xap/1.0/"
	nsPhotoshop = "http://ns.adobe.com/photoshop/1.0/"
	nsRDF       = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	nsXMeta     = "adobe:ns:meta/"
)

// Sidecar files store the label display-cased ("Red", "Yellow") the way
// desktop photo tools write it; the in-memory vocabulary is lowercase.
var labelCaser = cases.Title(language.English)

// SidecarRecord holds the owned fields read from one sidecar. Nil means the
// field was absent.
type SidecarRecord struct {
	Picked *bool
	Rating *int
	Label  *cullstate.Label
}

// ReadSidecar parses the sidecar at path and extracts the owned fields.
// A missing or empty file yields an empty record, not an error.
func ReadSidecar(path string) (*SidecarRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &SidecarRecord{}, nil
		}
		return nil, rawerr.Wrap(rawerr.ErrIOFailure, "xmpsync", "read sidecar", path, err)
	}
	if len(data) == 0 {
		return &SidecarRecord{}, nil
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, rawerr.Wrap(rawerr.ErrCorruptFile, "xmpsync", "parse sidecar", path, err)
	}

	record := &SidecarRecord{}
	for _, desc := range descriptions(doc) {
		if v, ok := fieldValue(desc, "xmp", "Rating"); ok {
			if rating, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				record.Rating = &rating
			}
		}
		if v, ok := fieldValue(desc, "xmp", "Label"); ok {
			label := cullstate.Label(strings.ToLower(strings.TrimSpace(v)))
			if cullstate.ValidLabel(label) {
				record.Label = &label
			}
		}
		if v, ok := fieldValue(desc, "photoshop", "Urgency"); ok {
			if urgency, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				picked := urgency == 1
				record.Picked = &picked
			}
		}
	}
	return record, nil
}

// WriteSidecar persists state's owned fields into the sidecar at path,
// creating it when absent. Existing content outside the owned fields is
// preserved verbatim: the document is parsed, patched, and rewritten
// atomically.
func WriteSidecar(path string, state cullstate.State) error {
	doc, created, err := loadOrCreate(path)
	if err != nil {
		return err
	}
	desc := ensureDescription(doc)

	if state.Rating > 0 {
		setField(desc, "xmp", "Rating", nsXMP, strconv.Itoa(state.Rating))
	} else {
		removeField(desc, "xmp", "Rating")
	}

	if state.Label != cullstate.LabelNone {
		setField(desc, "xmp", "Label", nsXMP, labelCaser.String(string(state.Label)))
	} else {
		removeField(desc, "xmp", "Label")
	}

	if state.Picked {
		setField(desc, "photoshop", "Urgency", nsPhotoshop, "1")
	} else if _, ok := fieldValue(desc, "photoshop", "Urgency"); ok {
		// Do not create the field just to say "not picked".
		setField(desc, "photoshop", "Urgency", nsPhotoshop, "0")
	}

	if created {
		doc.Indent(2)
	}
	out, err := doc.WriteToBytes()
	if err != nil {
		return rawerr.Wrap(rawerr.ErrIOFailure, "xmpsync", "serialize sidecar", path, err)
	}
	if err := fileutil.WriteFileAtomic(path, out, 0o644); err != nil {
		return rawerr.Wrap(rawerr.ErrIOFailure, "xmpsync", "write sidecar", path, err)
	}
	return nil
}

func loadOrCreate(path string) (*etree.Document, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, false, rawerr.Wrap(rawerr.ErrIOFailure, "xmpsync", "read sidecar", path, err)
	}
	if err == nil && len(data) > 0 {
		doc := etree.NewDocument()
		if parseErr := doc.ReadFromBytes(data); parseErr != nil {
			return nil, false, rawerr.Wrap(rawerr.ErrCorruptFile, "xmpsync", "parse sidecar", path, parseErr)
		}
		return doc, false, nil
	}
	return newPacket(), true, nil
}

func newPacket() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xpacket", `begin="" id="W5M0MpCehiHzreSzNTczkc9d"`)
	meta := doc.CreateElement("x:xmpmeta")
	meta.CreateAttr("xmlns:x", nsXMeta)
	rdf := meta.CreateElement("rdf:RDF")
	rdf.CreateAttr("xmlns:rdf", nsRDF)
	desc := rdf.CreateElement("rdf:Description")
	desc.CreateAttr("rdf:about", "")
	doc.CreateProcInst("xpacket", `end="w"`)
	return doc
}

// descriptions returns every rdf:Description element of the document.
func descriptions(doc *etree.Document) []*etree.Element {
	var out []*etree.Element
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if el.Tag == "Description" {
			out = append(out, el)
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	if root := doc.Root(); root != nil {
		walk(root)
	}
	return out
}

func ensureDescription(doc *etree.Document) *etree.Element {
	if all := descriptions(doc); len(all) > 0 {
		return all[0]
	}
	// Degenerate sidecar without an rdf:Description; graft a minimal one.
	root := doc.Root()
	if root == nil {
		root = doc.CreateElement("x:xmpmeta")
		root.CreateAttr("xmlns:x", nsXMeta)
	}
	rdf := root.FindElement("rdf:RDF")
	if rdf == nil {
		rdf = root.CreateElement("rdf:RDF")
		rdf.CreateAttr("xmlns:rdf", nsRDF)
	}
	desc := rdf.CreateElement("rdf:Description")
	desc.CreateAttr("rdf:about", "")
	return desc
}

// fieldValue reads an owned field from both shapes XMP allows: an attribute
// on rdf:Description or a child element.
func fieldValue(desc *etree.Element, space, key string) (string, bool) {
	for _, attr := range desc.Attr {
		if attr.Space == space && attr.Key == key {
			return attr.Value, true
		}
	}
	for _, child := range desc.ChildElements() {
		if child.Space == space && child.Tag == key {
			return child.Text(), true
		}
	}
	return "", false
}

func setField(desc *etree.Element, space, key, ns, value string) {
	// Update whichever shape the document already uses.
	for i := range desc.Attr {
		if desc.Attr[i].Space == space && desc.Attr[i].Key == key {
			desc.Attr[i].Value = value
			return
		}
	}
	for _, child := range desc.ChildElements() {
		if child.Space == space && child.Tag == key {
			child.SetText(value)
			return
		}
	}
	ensureNamespace(desc, space, ns)
	desc.CreateAttr(space+":"+key, value)
}

func removeField(desc *etree.Element, space, key string) {
	for _, attr := range desc.Attr {
		if attr.Space == space && attr.Key == key {
			desc.RemoveAttr(attr.Space + ":" + attr.Key)
			break
		}
	}
	for _, child := range desc.ChildElements() {
		if child.Space == space && child.Tag == key {
			desc.RemoveChild(child)
			break
		}
	}
}

func ensureNamespace(desc *etree.Element, prefix, ns string) {
	for el := desc; el != nil; el = el.Parent() {
		for _, attr := range el.Attr {
			if attr.Space == "xmlns" && attr.Key == prefix {
				return
			}
		}
	}
	desc.CreateAttr(fmt.Sprintf("xmlns:%s", prefix), ns)
}
