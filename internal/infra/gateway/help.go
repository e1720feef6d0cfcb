package gateway

const helpText = `# Figma MCP Server

Tools for reading Figma files by file key. Use the depth parameter to keep
responses small.

## Workflow

1. Call parse_figma_url to get the file key (and node id) from a Figma link.
2. Call get_file with the file key at depth 1 to list the pages.
3. Call get_file_nodes with page or frame ids to walk further down.
4. Call export_images to render nodes; each image becomes an MCP resource.

## Tools

- parse_figma_url: classify a Figma URL and extract its file key and node id
- get_file: file document, depth defaults to 1
- get_file_nodes: selected nodes (comma-separated node_ids), depth defaults to 1
- export_images: render nodes as jpg, png, svg or pdf (default png, scale 1)
- get_me: the user that owns the token, useful to check authentication
- help: this text

## Depth

- depth=1: pages of a file, or direct children of a node
- depth=2: adds top-level frames, or grandchildren of a node
- depth=3 and above: deeper trees, can be very large

## Resources

Exported images are listed by resources/list and returned as base64 blobs by
resources/read. URIs look like figma://file/{file_key}/node/{node_id}.{format},
with an @{scale}x suffix for scales other than 1. Export URLs expire after one
hour; read the resource before then or export again.

## Supported URLs

- https://www.figma.com/file/FILE_KEY/name
- https://www.figma.com/file/FILE_KEY/name?node-id=1%3A2
- https://www.figma.com/design/FILE_KEY/name

## Authentication

Set a personal access token in FIGMA_TOKEN (or figma.token in the config file).
Tokens are created at https://www.figma.com/developers/api#access-tokens
`
