// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package metadata

import (
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/kraklabs/hcaa/pkg/model"
)

// packageJSON mirrors the subset of package.json fields relevant to
// classification and dependency-based framework detection.
type packageJSON struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Main            string            `json:"main"`
	Scripts         map[string]string `json:"scripts"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

type cargoToml struct {
	Package struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
	Dependencies map[string]interface{} `toml:"dependencies"`
}

type pyprojectToml struct {
	Project struct {
		Name         string   `toml:"name"`
		Version      string   `toml:"version"`
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name         string                 `toml:"name"`
			Version      string                 `toml:"version"`
			Dependencies map[string]interface{} `toml:"dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

type mavenPOM struct {
	XMLName      xml.Name `xml:"project"`
	ArtifactID   string   `xml:"artifactId"`
	Version      string   `xml:"version"`
	Dependencies struct {
		Dependency []struct {
			GroupID    string `xml:"groupId"`
			ArtifactID string `xml:"artifactId"`
			Version    string `xml:"version"`
		} `xml:"dependency"`
	} `xml:"dependencies"`
}

// ReadManifest locates and parses the first recognized manifest file
// under root, returning manifest metadata plus any entry points it
// declares. An absent manifest is not an error: the caller falls back
// to directory-structure inference.
func ReadManifest(root string) (model.ManifestMetadata, []model.EntryPoint, error) {
	if meta, eps, ok := readPackageJSON(root); ok {
		return meta, eps, nil
	}
	if meta, eps, ok := readCargoToml(root); ok {
		return meta, eps, nil
	}
	if meta, eps, ok := readPyproject(root); ok {
		return meta, eps, nil
	}
	if meta, ok := readRequirementsTxt(root); ok {
		return meta, nil, nil
	}
	if meta, ok := readPomXML(root); ok {
		return meta, nil, nil
	}
	return model.ManifestMetadata{}, nil, nil
}

func readPackageJSON(root string) (model.ManifestMetadata, []model.EntryPoint, bool) {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return model.ManifestMetadata{}, nil, false
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return model.ManifestMetadata{}, nil, false
	}

	deps := make(map[string]string, len(pkg.Dependencies)+len(pkg.DevDependencies))
	for k, v := range pkg.Dependencies {
		deps[k] = v
	}
	for k, v := range pkg.DevDependencies {
		deps[k] = v
	}

	var entryPoints []model.EntryPoint
	if pkg.Main != "" {
		entryPoints = append(entryPoints, model.EntryPoint{Path: pkg.Main, Kind: model.EntryPointLibraryRoot})
	}
	if script, ok := pkg.Scripts["start"]; ok && script != "" {
		entryPoints = append(entryPoints, model.EntryPoint{Path: script, Kind: model.EntryPointScript})
	}

	return model.ManifestMetadata{PackageName: pkg.Name, Version: pkg.Version, Dependencies: deps}, entryPoints, true
}

func readCargoToml(root string) (model.ManifestMetadata, []model.EntryPoint, bool) {
	data, err := os.ReadFile(filepath.Join(root, "Cargo.toml"))
	if err != nil {
		return model.ManifestMetadata{}, nil, false
	}
	var cargo cargoToml
	if err := toml.Unmarshal(data, &cargo); err != nil {
		return model.ManifestMetadata{}, nil, false
	}

	deps := make(map[string]string, len(cargo.Dependencies))
	for name, spec := range cargo.Dependencies {
		deps[name] = stringifyTOMLDepSpec(spec)
	}

	var entryPoints []model.EntryPoint
	if fileExists(filepath.Join(root, "src", "main.rs")) {
		entryPoints = append(entryPoints, model.EntryPoint{Path: "src/main.rs", Kind: model.EntryPointExecutableMain})
	}
	if fileExists(filepath.Join(root, "src", "lib.rs")) {
		entryPoints = append(entryPoints, model.EntryPoint{Path: "src/lib.rs", Kind: model.EntryPointLibraryRoot})
	}

	return model.ManifestMetadata{PackageName: cargo.Package.Name, Version: cargo.Package.Version, Dependencies: deps}, entryPoints, true
}

func readPyproject(root string) (model.ManifestMetadata, []model.EntryPoint, bool) {
	data, err := os.ReadFile(filepath.Join(root, "pyproject.toml"))
	if err != nil {
		return model.ManifestMetadata{}, nil, false
	}
	var py pyprojectToml
	if err := toml.Unmarshal(data, &py); err != nil {
		return model.ManifestMetadata{}, nil, false
	}

	name, version := py.Project.Name, py.Project.Version
	deps := make(map[string]string)
	for _, dep := range py.Project.Dependencies {
		pkgName, constraint := splitPEP508(dep)
		deps[pkgName] = constraint
	}
	if name == "" {
		name = py.Tool.Poetry.Name
		version = py.Tool.Poetry.Version
		for pkgName, spec := range py.Tool.Poetry.Dependencies {
			deps[pkgName] = stringifyTOMLDepSpec(spec)
		}
	}

	return model.ManifestMetadata{PackageName: name, Version: version, Dependencies: deps}, nil, true
}

func readRequirementsTxt(root string) (model.ManifestMetadata, bool) {
	data, err := os.ReadFile(filepath.Join(root, "requirements.txt"))
	if err != nil {
		return model.ManifestMetadata{}, false
	}
	deps := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pkgName, constraint := splitPEP508(line)
		if pkgName != "" {
			deps[pkgName] = constraint
		}
	}
	return model.ManifestMetadata{Dependencies: deps}, true
}

func readPomXML(root string) (model.ManifestMetadata, bool) {
	data, err := os.ReadFile(filepath.Join(root, "pom.xml"))
	if err != nil {
		return model.ManifestMetadata{}, false
	}
	var pom mavenPOM
	if err := xml.Unmarshal(data, &pom); err != nil {
		return model.ManifestMetadata{}, false
	}
	deps := make(map[string]string, len(pom.Dependencies.Dependency))
	for _, d := range pom.Dependencies.Dependency {
		deps[d.GroupID+":"+d.ArtifactID] = d.Version
	}
	return model.ManifestMetadata{PackageName: pom.ArtifactID, Version: pom.Version, Dependencies: deps}, true
}

// splitPEP508 splits a requirement string like "django>=4.0" into
// ("django", ">=4.0").
func splitPEP508(spec string) (name, constraint string) {
	for i, c := range spec {
		if c == '=' || c == '>' || c == '<' || c == '~' || c == '!' || c == '[' {
			return strings.TrimSpace(spec[:i]), strings.TrimSpace(spec[i:])
		}
	}
	return strings.TrimSpace(spec), ""
}

func stringifyTOMLDepSpec(spec interface{}) string {
	switch v := spec.(type) {
	case string:
		return v
	case map[string]interface{}:
		if ver, ok := v["version"].(string); ok {
			return ver
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
