package config

var defaults Config

func init() {
	yaml := []byte(`version: v1alpha1

# Settings of the external renderer.
renderer:
  # Mermaid CLI command. Arguments are split like a shell would.
  command: "mmdc"
  # One of strict, antiscript, loose, sandbox.
  security_level: strict
  font_family: "trebuchet ms, verdana, arial, sans-serif"
  max_text_size: 50000
  html_labels: false
  timeout: 30s
  # Quiet period after the last change before rendering.
  debounce: 300ms

editor:
  history_limit: 50
  # Changes closer than this are merged into one undo step.
  batch_window: 500ms

store:
  # One of file, sqlite, memory.
  driver: file
  path: ".diagrammer"

server:
  # Also unix:///path/to/file.sock is supported.
  address: localhost:7863
  # Empty allows every origin.
  allowed_origins: []
  max_sessions: 1024
  dump_http: false
  tls:
    enabled: false
    # If not specified, default paths will be used.
    # cert_file: "/path/to/cert.pem"
    # key_file: "/path/to/key.pem"

watch:
  patterns:
    - "**/*.mmd"
  # The list of filters to apply to watched files and markdown blocks.
  # "condition" must return a boolean value.
  # You can learn about the syntax at https://expr-lang.org/docs/language-definition.
  # Available fields are defined in [config.FilterFileEnv] and [config.FilterBlockEnv].
  # filters:
  #   # Skip large files.
  #   - type: "FILTER_TYPE_FILE"
  #     condition: "size < 100000"
  #   # Only render mermaid blocks with a title.
  #   - type: "FILTER_TYPE_BLOCK"
  #     condition: "title != ''"

log:
  enabled: false
  path: ""
  verbose: false
`)

	cfg, err := parseYAML(&Config{}, yaml)
	if err != nil {
		panic(err)
	}

	defaults = *cfg
}
