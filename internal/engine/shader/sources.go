package shader

import _ "embed"

// PointsVertexShader draws point clouds in display or picking mode.
//
//go:embed glsl/points.vert
var PointsVertexShader string

// PointsFragmentShader clips points to discs.
//
//go:embed glsl/points.frag
var PointsFragmentShader string

// LinesVertexShader draws wireframes and polylines.
//
//go:embed glsl/lines.vert
var LinesVertexShader string

// LinesFragmentShader is the flat-color line fragment shader.
//
//go:embed glsl/lines.frag
var LinesFragmentShader string

// ImageVertexShader draws a textured screen-space quad.
//
//go:embed glsl/image.vert
var ImageVertexShader string

// ImageFragmentShader samples the quad texture unchanged.
//
//go:embed glsl/image.frag
var ImageFragmentShader string
