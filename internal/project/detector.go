package project

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dimslaev/ai-chat/internal/fs"
)

// ProjectType describes a detected project heuristic along with supporting evidence.
type ProjectType struct {
	ID          string
	Name        string
	Description string
	Evidence    []string
	Confidence  float64
}

// Detector scans the workspace for files that indicate known project types.
type Detector struct {
	fsys     fs.FileSystem
	maxDepth int
}

// Option customizes the detector before running detection.
type Option func(*Detector)

// NewDetector creates a detector over the workspace file system.
func NewDetector(fsys fs.FileSystem, opts ...Option) *Detector {
	d := &Detector{
		fsys:     fsys,
		maxDepth: 3,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// WithMaxDepth controls how deep marker files are looked for.
// A non-positive value disables the depth limit.
func WithMaxDepth(depth int) Option {
	return func(d *Detector) {
		d.maxDepth = depth
	}
}

// Detect returns matched project types ordered by confidence.
func (d *Detector) Detect(ctx context.Context) ([]ProjectType, error) {
	var files []string
	err := d.fsys.Walk(ctx, func(fi *fs.FileInfo) error {
		if d.maxDepth <= 0 || depthOf(fi.Path) <= d.maxDepth {
			files = append(files, fi.Path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]ProjectType, 0, len(definitions))
	for _, def := range definitions {
		matched, evidence, optionalMatches := def.match(files)
		if !matched {
			continue
		}

		confidence := def.BaseConfidence + float64(optionalMatches)*def.OptionalBonus
		if confidence > 1 {
			confidence = 1
		}

		result = append(result, ProjectType{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Evidence:    evidence,
			Confidence:  confidence,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Confidence == result[j].Confidence {
			return result[i].Name < result[j].Name
		}
		return result[i].Confidence > result[j].Confidence
	})

	return result, nil
}

// Summary renders detected types as one line, e.g. "Go, Node.js / JavaScript".
func Summary(types []ProjectType) string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}

type indicator struct {
	Pattern string
	Match   func(string) bool
}

type projectDefinition struct {
	ID                 string
	Name               string
	Description        string
	Required           []indicator // any one of them
	OptionalIndicators []indicator
	BaseConfidence     float64
	OptionalBonus      float64
}

func (def projectDefinition) match(paths []string) (bool, []string, int) {
	var evidence []string
	satisfied := false
	for _, ind := range def.Required {
		if m := ind.first(paths); m != "" {
			satisfied = true
			evidence = append(evidence, fmt.Sprintf("%s (matched %s)", m, ind.Pattern))
			break
		}
	}
	if !satisfied {
		return false, nil, 0
	}

	optionalMatches := 0
	for _, ind := range def.OptionalIndicators {
		if m := ind.first(paths); m != "" {
			optionalMatches++
			evidence = append(evidence, fmt.Sprintf("%s (matched %s)", m, ind.Pattern))
		}
	}
	return true, evidence, optionalMatches
}

func (ind indicator) first(paths []string) string {
	for _, p := range paths {
		if ind.Match(p) {
			return p
		}
	}
	return ""
}

func depthOf(rel string) int {
	clean := strings.Trim(rel, "/")
	if clean == "" {
		return 0
	}
	return strings.Count(clean, "/") + 1
}

func exact(path string) indicator {
	return indicator{
		Pattern: path,
		Match: func(rel string) bool {
			return strings.EqualFold(rel, path)
		},
	}
}

func suffix(pattern string) indicator {
	normalized := strings.ToLower(pattern)
	return indicator{
		Pattern: "*" + pattern,
		Match: func(rel string) bool {
			return strings.HasSuffix(strings.ToLower(rel), normalized)
		},
	}
}

var definitions = []projectDefinition{
	{
		ID:                 "go",
		Name:               "Go",
		Description:        "Go module project declared via go.mod",
		Required:           []indicator{exact("go.mod")},
		OptionalIndicators: []indicator{exact("go.sum")},
		BaseConfidence:     0.94,
		OptionalBonus:      0.02,
	},
	{
		ID:          "nodejs",
		Name:        "Node.js / JavaScript",
		Description: "package.json defines a JavaScript or TypeScript workspace",
		Required:    []indicator{exact("package.json")},
		OptionalIndicators: []indicator{
			exact("package-lock.json"),
			exact("yarn.lock"),
			exact("pnpm-lock.yaml"),
			exact("tsconfig.json"),
		},
		BaseConfidence: 0.85,
		OptionalBonus:  0.02,
	},
	{
		ID:                 "rust",
		Name:               "Rust",
		Description:        "Cargo project described by Cargo.toml",
		Required:           []indicator{exact("Cargo.toml")},
		OptionalIndicators: []indicator{exact("Cargo.lock")},
		BaseConfidence:     0.92,
		OptionalBonus:      0.03,
	},
	{
		ID:          "python",
		Name:        "Python",
		Description: "Python project with pyproject.toml, requirements, or setup.py",
		Required: []indicator{
			exact("pyproject.toml"),
			exact("requirements.txt"),
			exact("setup.py"),
		},
		OptionalIndicators: []indicator{
			exact("Pipfile"),
			exact("poetry.lock"),
		},
		BaseConfidence: 0.8,
		OptionalBonus:  0.02,
	},
	{
		ID:          "java",
		Name:        "Java",
		Description: "Java project using Maven or Gradle build files",
		Required: []indicator{
			exact("pom.xml"),
			suffix("build.gradle"),
			suffix("build.gradle.kts"),
		},
		OptionalIndicators: []indicator{exact("settings.gradle")},
		BaseConfidence:     0.78,
		OptionalBonus:      0.02,
	},
	{
		ID:          "csharp",
		Name:        "C# (.NET)",
		Description: "C# solution or project with .csproj or .sln",
		Required: []indicator{
			suffix(".csproj"),
			suffix(".sln"),
		},
		BaseConfidence: 0.86,
	},
}
