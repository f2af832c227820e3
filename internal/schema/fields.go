package schema

// Fields is an ordered list of content type fields.
type Fields []Field

// FindByName returns the top-level field called name.
func (fs Fields) FindByName(name string) (Field, bool) {
	for _, f := range fs {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FindByTypeDeep returns every field of type typ at any depth. Each result is
// the chain of fields from the top level down to the match, so the names of
// the chain form the path into the front matter.
func (fs Fields) FindByTypeDeep(typ string) [][]Field {
	var out [][]Field
	fs.walk(nil, func(chain []Field) bool {
		if chain[len(chain)-1].Type == typ {
			out = append(out, chain)
		}
		return false
	})
	return out
}

// FindPreviewPath returns the path to the preview image field: the first
// field flagged isPreviewImage at any depth, else a top-level image field
// called "preview". It returns nil when the content type has neither.
func (fs Fields) FindPreviewPath() []string {
	var found []Field
	fs.walk(nil, func(chain []Field) bool {
		if chain[len(chain)-1].IsPreviewImage {
			found = chain
			return true
		}
		return false
	})
	if found != nil {
		return Names(found)
	}
	if f, ok := fs.FindByName("preview"); ok && f.Type == TypeImage {
		return []string{f.Name}
	}
	return nil
}

// PublishDateField returns the field flagged isPublishDate, if any.
func (fs Fields) PublishDateField() (Field, bool) {
	return fs.findFlag(func(f Field) bool { return f.IsPublishDate })
}

// ModifiedDateField returns the field flagged isModifiedDate, if any.
func (fs Fields) ModifiedDateField() (Field, bool) {
	return fs.findFlag(func(f Field) bool { return f.IsModifiedDate })
}

func (fs Fields) findFlag(match func(Field) bool) (Field, bool) {
	for _, f := range fs {
		if match(f) {
			return f, true
		}
	}
	return Field{}, false
}

// walk visits fields depth first. visit receives the chain ending at the
// current field and returns true to stop.
func (fs Fields) walk(parents []Field, visit func(chain []Field) bool) bool {
	for _, f := range fs {
		chain := make([]Field, len(parents)+1)
		copy(chain, parents)
		chain[len(parents)] = f
		if visit(chain) {
			return true
		}
		if len(f.Fields) > 0 && f.Fields.walk(chain, visit) {
			return true
		}
	}
	return false
}

// Names returns the field names of a chain.
func Names(chain []Field) []string {
	names := make([]string, len(chain))
	for i, f := range chain {
		names[i] = f.Name
	}
	return names
}
