/*
Package factory produces the documents a load job writes.

Two factories are available, both drawing their values from a random.Allocator:

  - invoice: a fixed invoice schema whose line items and totals are consistent
  - sample: mirrors the structure of a sample document read through an ISampleSource

Example:

	rand := random.NewSeeded(42)
	f, err := factory.New("sample", rand, factory.Options{SamplePath: "person.json"})
	if err != nil {
		return err
	}
	doc, err := f.GenerateDocument()
*/
package factory
