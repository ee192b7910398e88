package protocore

// Version is the library version reported by the dsi tool.
const Version = "0.1.0"
