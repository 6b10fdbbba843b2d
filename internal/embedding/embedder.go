package embedding

// Corpus is implemented by embedders whose vector space is learned from the
// indexed chunks. They are fitted before a build, and their state is saved in
// and restored from the index directory.
type Corpus interface {
	Fit(texts []string) error
	Save(dir string) error
	Load(dir string) error
}
