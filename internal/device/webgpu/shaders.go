package webgpu

import (
	"bytes"
	"text/template"

	"github.com/born-ml/gpuarray/internal/dtype"
	"github.com/born-ml/gpuarray/internal/kernels"
)

// workgroupSize is the number of invocations per workgroup of every generated shader.
const workgroupSize = 64

// maxWorkgroupsPerDim is the WebGPU limit of workgroups along one dispatch dimension.
const maxWorkgroupsPerDim = 65535

// wgslTypes maps the element types with generated kernels to their WGSL scalar type.
var wgslTypes = map[dtype.ElementType]string{
	dtype.Float32: "f32",
	dtype.Int32:   "i32",
}

// field is one member of the Params uniform, after the geometry header.
// Shaders declare "alias T" to the element type of the kernel.
type field struct {
	Name, Type string
}

// shaderDef describes one kernel shader: its storage buffers in argument order,
// its uniform fields in argument order, and the WGSL body run by each work-item.
type shaderDef struct {
	Buffers []string
	Fields  []field
	Body    string
	// Float marks kernels that only exist for floating point types.
	Float bool
}

// stridedFields declares the strides and offsets of each named view, then the shared extent.
func stridedFields(names ...string) []field {
	var fields []field
	for _, n := range names {
		fields = append(fields, field{n + "_strides", "vec4<u32>"}, field{n + "_offsets", "vec4<u32>"})
	}
	return append(fields, field{"extent", "vec4<u32>"})
}

var (
	thresholdExprs = map[kernels.Op]string{
		kernels.Max:  "max(v, params.limit)",
		kernels.Min:  "min(v, params.limit)",
		kernels.DMax: "select(0.0, 1.0, v > params.limit)",
		kernels.DMin: "select(0.0, 1.0, v < params.limit)",
	}
	unaryExprs = map[kernels.Op]string{
		kernels.Tanh:     "tanh(v)",
		kernels.DTanh:    "1.0 - tanh(v) * tanh(v)",
		kernels.Sigmoid:  "sigmoid(v)",
		kernels.DSigmoid: "sigmoid(v) * (1.0 - sigmoid(v))",
		kernels.Log:      "log(v)",
		kernels.Exp:      "exp(v)",
	}
	binaryOperators = map[kernels.Op]string{
		kernels.Add:      "+",
		kernels.Sub:      "-",
		kernels.Multiply: "*",
	}
)

// shaderDefFor returns the shader of an operation, if the device implements it.
func shaderDefFor(op kernels.Op, slice bool) (shaderDef, bool) {
	if slice {
		return sliceShaderDefFor(op)
	}
	switch op {
	case kernels.CopyTo:
		return shaderDef{Buffers: []string{"src", "dst"}, Body: "dst[i] = src[i];"}, true
	case kernels.Fill:
		return shaderDef{Buffers: []string{"dst"}, Fields: []field{{"fill_value", "T"}}, Body: "dst[i] = params.fill_value;"}, true
	case kernels.Sum:
		return shaderDef{
			Buffers: []string{"src", "dst"},
			Fields:  []field{{"rows", "u32"}, {"cols", "u32"}, {"axis", "i32"}},
			Body: `var acc = T(0);
    if (params.axis == 0) {
        for (var r = 0u; r < params.rows; r = r + 1u) {
            acc = acc + src[r * params.cols + x];
        }
    } else {
        for (var c = 0u; c < params.cols; c = c + 1u) {
            acc = acc + src[x * params.cols + c];
        }
    }
    dst[x] = acc;`,
		}, true
	case kernels.Add, kernels.Multiply:
		return shaderDef{
			Buffers: []string{"lhs", "rhs", "res"},
			Fields:  []field{{"cols", "u32"}, {"axis", "i32"}},
			Body: `var j = i;
    if (params.axis == 0) {
        j = i % params.cols;
    } else if (params.axis == 1) {
        j = i / params.cols;
    }
    res[i] = lhs[i] ` + binaryOperators[op] + ` rhs[j];`,
		}, true
	case kernels.Sub:
		return shaderDef{Buffers: []string{"lhs", "rhs", "res"}, Body: "res[i] = lhs[i] - rhs[i];"}, true
	case kernels.Transpose:
		return shaderDef{
			Buffers: []string{"src", "dst"},
			Fields:  []field{{"rows", "u32"}, {"cols", "u32"}},
			Body:    "dst[y * params.rows + x] = src[x * params.cols + y];",
		}, true
	case kernels.Matmul:
		return shaderDef{
			Buffers: []string{"lhs", "rhs", "res"},
			Fields:  []field{{"depth", "u32"}, {"cols", "u32"}},
			Body: `var acc = T(0);
    for (var k = 0u; k < params.depth; k = k + 1u) {
        acc = acc + lhs[x * params.depth + k] * rhs[k * params.cols + y];
    }
    res[x * params.cols + y] = acc;`,
		}, true
	case kernels.Max, kernels.Min, kernels.DMax, kernels.DMin:
		return shaderDef{
			Buffers: []string{"src", "dst"},
			Fields:  []field{{"limit", "T"}},
			Body:    "let v = src[i];\n    dst[i] = " + thresholdExprs[op] + ";",
			Float:   true,
		}, true
	case kernels.MSE:
		return shaderDef{
			Buffers: []string{"src", "tgt", "res"},
			Fields:  []field{{"rows", "u32"}, {"cols", "u32"}},
			Body: `var acc = 0.0;
    for (var r = 0u; r < params.rows; r = r + 1u) {
        let d = src[r * params.cols + x] - tgt[r * params.cols + x];
        acc = acc + d * d;
    }
    res[x] = acc / f32(params.rows);`,
			Float: true,
		}, true
	case kernels.DMSE:
		return shaderDef{
			Buffers: []string{"src", "tgt", "res"},
			Fields:  []field{{"rows", "u32"}, {"cols", "u32"}},
			Body:    "res[i] = 2.0 * (src[i] - tgt[i]) / f32(params.rows);",
			Float:   true,
		}, true
	}
	if expr, ok := unaryExprs[op]; ok {
		return shaderDef{
			Buffers: []string{"src", "dst"},
			Body:    "let v = src[i];\n    dst[i] = " + expr + ";",
			Float:   true,
		}, true
	}
	return shaderDef{}, false
}

func sliceShaderDefFor(op kernels.Op) (shaderDef, bool) {
	switch op {
	case kernels.CopyTo:
		return shaderDef{
			Buffers: []string{"src", "dst"},
			Fields:  stridedFields("src", "dst"),
			Body:    "dst[at(params.dst_strides, params.dst_offsets, c)] = src[at(params.src_strides, params.src_offsets, c)];",
		}, true
	case kernels.Fill:
		return shaderDef{
			Buffers: []string{"dst"},
			Fields:  append(stridedFields("dst"), field{"fill_value", "T"}),
			Body:    "dst[at(params.dst_strides, params.dst_offsets, c)] = params.fill_value;",
		}, true
	case kernels.Add, kernels.Sub, kernels.Multiply:
		return shaderDef{
			Buffers: []string{"lhs", "rhs", "res"},
			Fields:  stridedFields("lhs", "rhs", "res"),
			Body: "res[at(params.res_strides, params.res_offsets, c)] = lhs[at(params.lhs_strides, params.lhs_offsets, c)] " +
				binaryOperators[op] + " rhs[at(params.rhs_strides, params.rhs_offsets, c)];",
		}, true
	case kernels.Max, kernels.Min, kernels.DMax, kernels.DMin:
		return shaderDef{
			Buffers: []string{"src", "dst"},
			Fields:  append(stridedFields("src", "dst"), field{"limit", "T"}),
			Body: "let v = src[at(params.src_strides, params.src_offsets, c)];\n" +
				"    dst[at(params.dst_strides, params.dst_offsets, c)] = " + thresholdExprs[op] + ";",
			Float: true,
		}, true
	}
	if expr, ok := unaryExprs[op]; ok {
		return shaderDef{
			Buffers: []string{"src", "dst"},
			Fields:  stridedFields("src", "dst"),
			Body: "let v = src[at(params.src_strides, params.src_offsets, c)];\n" +
				"    dst[at(params.dst_strides, params.dst_offsets, c)] = " + expr + ";",
			Float: true,
		}, true
	}
	return shaderDef{}, false
}

var shaderTemplate = template.Must(template.New("shader").Parse(`alias T = {{.T}};

struct Params {
    geom: vec4<u32>,
{{- range .Fields}}
    {{.Name}}: {{.Type}},
{{- end}}
}

{{range $i, $b := .Buffers -}}
@group(0) @binding({{$i}}) var<storage, read_write> {{$b}}: array<T>;
{{end -}}
@group(0) @binding({{len .Buffers}}) var<uniform> params: Params;

fn at(strides: vec4<u32>, offsets: vec4<u32>, c: vec4<u32>) -> u32 {
    let p = (offsets + c) * strides;
    return p.x + p.y + p.z + p.w;
}
{{if .Float}}
fn sigmoid(v: T) -> T {
    return 1.0 / (1.0 + exp(-v));
}
{{end}}
@compute @workgroup_size({{.WorkgroupSize}})
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x + gid.y * params.geom.w;
    if (i >= params.geom.x * params.geom.y * params.geom.z) {
        return;
    }
    let x = i / (params.geom.y * params.geom.z);
    let y = (i / params.geom.z) % params.geom.y;
    let z = i % params.geom.z;
{{- if .Slice}}
    let c = vec4<u32>(x / params.extent.y, x % params.extent.y, y, z);
{{- end}}
    {{.Body}}
}
`))

// shaderData is the input of shaderTemplate.
type shaderData struct {
	Buffers       []string
	Fields        []field
	Body          string
	Float         bool
	Slice         bool
	T             string
	WorkgroupSize int
}

// shaderSource generates the WGSL source of a kernel.
// It returns false if the device has no kernel for the (op, element type) pair.
func shaderSource(op kernels.Op, slice bool, et dtype.ElementType) (string, bool) {
	wgslType, ok := wgslTypes[et]
	if !ok {
		return "", false
	}
	def, ok := shaderDefFor(op, slice)
	if !ok || (def.Float && !et.IsFloat()) {
		return "", false
	}
	var buf bytes.Buffer
	err := shaderTemplate.Execute(&buf, shaderData{
		Buffers:       def.Buffers,
		Fields:        def.Fields,
		Body:          def.Body,
		Float:         def.Float,
		Slice:         slice,
		T:             wgslType,
		WorkgroupSize: workgroupSize,
	})
	if err != nil {
		return "", false
	}
	return buf.String(), true
}

// dispatchSize returns the workgroup counts covering n work-items, and the number of
// invocations per row of workgroups used to flatten the invocation id.
func dispatchSize(n int) (x, y uint32, rowStride int) {
	groups := (n + workgroupSize - 1) / workgroupSize
	if groups <= maxWorkgroupsPerDim {
		return uint32(max(groups, 1)), 1, groups * workgroupSize
	}
	rows := (groups + maxWorkgroupsPerDim - 1) / maxWorkgroupsPerDim
	return maxWorkgroupsPerDim, uint32(rows), maxWorkgroupsPerDim * workgroupSize
}
