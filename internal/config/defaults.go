package config

// DefaultConfigYAML is written by `ghc config init`.
const DefaultConfigYAML = `# ghc configuration
#
# Values not specified here use built-in defaults.
# Environment variables override this file: GHC_LOG_LEVEL, GHC_ASSISTANT_DEFAULT_MODEL, ...

log:
  level: info
  # auto picks pretty output on a terminal and JSON otherwise.
  format: auto
  # The TUI writes logs here; when empty they are discarded while it runs.
  file: ""

assistant:
  # Leave empty to search PATH and the usual install locations.
  path: ""
  default_model: claude-sonnet-4.5
  models:
    - claude-sonnet-4.5
    - claude-sonnet-4
    - claude-haiku-4.5
    - gpt-5
    - gpt-5-mini
    - gpt-4.1
  timeout: 10m

auth:
  client_id: Ov23liTEmQZzOQ2bdFcm
  scope: read:user
  # Defaults to ~/.env when empty.
  env_file: ""
  token_var: GITHUB_TOKEN
  login_timeout: 15m

ui:
  status_ttl: 10s
  copy_status_ttl: 3s
  copy_feedback_ttl: 1500ms

web:
  host: 127.0.0.1
  port: 8787
  cors_origins: []

history:
  # off, json or sqlite
  archive: "off"
  path: ""

notify:
  desktop: false

links:
  billing_url: https://github.com/settings/billing/premium_requests_usage
`
