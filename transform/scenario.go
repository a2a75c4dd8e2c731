package transform

// Scenario is one YAML-driven end-to-end fixture: an input source, the
// expected transformed output (or expected error substring), mirroring
// the teacher's TestSuite/TestCase YAML-fixture shape scaled down to
// this module's domain.
type Scenario struct {
	Name    string `yaml:"name"`
	Input   string `yaml:"input"`
	Want    string `yaml:"want"`
	WantErr string `yaml:"want_err"`
}
