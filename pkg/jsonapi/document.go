package jsonapi

// DocumentBuilder builds a Document.
type DocumentBuilder struct {
	doc Document
}

// NewDocument creates a new DocumentBuilder.
func NewDocument() *DocumentBuilder {
	return &DocumentBuilder{}
}

// Data sets the primary data.
func (b *DocumentBuilder) Data(data any) *DocumentBuilder {
	b.doc.Data = data
	b.doc.Errors = nil
	return b
}

// Errors sets the errors and drops any data.
func (b *DocumentBuilder) Errors(errors ...Error) *DocumentBuilder {
	b.doc.Errors = errors
	b.doc.Data = nil
	return b
}

// Meta adds a metadata entry.
func (b *DocumentBuilder) Meta(key string, value any) *DocumentBuilder {
	if b.doc.Meta == nil {
		b.doc.Meta = make(Meta)
	}
	b.doc.Meta[key] = value
	return b
}

// JSONAPI sets the version object.
func (b *DocumentBuilder) JSONAPI() *DocumentBuilder {
	b.doc.JSONAPI = &JSONAPI{Version: Version}
	return b
}

// Build returns the document.
func (b *DocumentBuilder) Build() Document {
	return b.doc
}

// NewErrorDocument returns a document holding errs.
func NewErrorDocument(errs ...Error) Document {
	return NewDocument().Errors(errs...).JSONAPI().Build()
}
