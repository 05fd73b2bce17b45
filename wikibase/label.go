package wikibase

// Label is the label argument of CreateItem: a PlainLabel or a LabelMap.
// A nil Label sets no labels.
type Label interface {
	resolve() LabelMap
}

// PlainLabel is an English label value
type PlainLabel string

// LabelMap maps a language code to its label entry and is sent as-is
type LabelMap map[string]LabelValue

// LabelValue is one language's label as Wikibase expects it
type LabelValue struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

func (l PlainLabel) resolve() LabelMap {
	if l == "" {
		return LabelMap{}
	}
	return LabelMap{"en": {Language: "en", Value: string(l)}}
}

func (m LabelMap) resolve() LabelMap {
	if m == nil {
		return LabelMap{}
	}
	return m
}

// LabelsFromValues builds a LabelMap from language -> value pairs
func LabelsFromValues(values map[string]string) LabelMap {
	m := make(LabelMap, len(values))
	for lang, v := range values {
		m[lang] = LabelValue{Language: lang, Value: v}
	}
	return m
}

// Draft is the entity JSON submitted as the data parameter of wbeditentity
type Draft map[string]interface{}

// NewItemDraft starts from the resolved labels and copies data on top, so a
// "labels" key in data replaces them.
func NewItemDraft(label Label, data map[string]interface{}) Draft {
	labels := LabelMap{}
	if label != nil {
		labels = label.resolve()
	}
	return merge(Draft{"labels": labels}, data)
}

// NewPropertyDraft starts from the datatype and copies data on top
func NewPropertyDraft(datatype string, data map[string]interface{}) Draft {
	return merge(Draft{"datatype": datatype}, data)
}

func merge(d Draft, data map[string]interface{}) Draft {
	for k, v := range data {
		d[k] = v
	}
	return d
}
