package analysis

import (
	"testing"

	"github.com/standardbeagle/codegraph/internal/traversal"
	"github.com/standardbeagle/codegraph/internal/types"
)

const jsFixture = `import { helper } from './util';
const fs = require('fs');

class Animal {
  speak(sound) {
    return sound;
  }
}

class Dog extends Animal {
  speak() {
    return helper('woof');
  }
}

function feed(animal, amount = 1) {
  animal.speak();
}
`

func TestJavaScriptAnalyzerEntities(t *testing.T) {
	root := parseFixture(t, "javascript", jsFixture)
	a := NewJavaScriptAnalyzer(traversal.DefaultLimits(), nil)

	result := a.Analyze(root, "src/app.js")
	if result.Partial {
		t.Fatal("fixture analysis should complete")
	}

	if findEntity(result.Entities, types.KindModule, "app") == nil {
		t.Error("missing module entity")
	}
	if findEntity(result.Entities, types.KindClass, "Animal") == nil {
		t.Error("missing Animal class")
	}
	dog := findEntity(result.Entities, types.KindClass, "Dog")
	if dog == nil {
		t.Fatal("missing Dog class")
	}
	if findEntity(dog.Children, types.KindMethod, "speak") == nil {
		t.Error("methods should nest under their class")
	}

	feed := findEntity(result.Entities, types.KindFunction, "feed")
	if feed == nil {
		t.Fatal("missing feed function")
	}
	if len(feed.Parameters) != 2 {
		t.Fatalf("feed parameters = %+v, want 2", feed.Parameters)
	}
	if !feed.Parameters[1].Optional {
		t.Error("defaulted parameter should be optional")
	}
}

func TestJavaScriptAnalyzerImports(t *testing.T) {
	root := parseFixture(t, "javascript", jsFixture)
	a := NewJavaScriptAnalyzer(traversal.DefaultLimits(), nil)

	result := a.Analyze(root, "src/app.js")
	specs := make(map[string]struct{})
	for _, imp := range result.Imports {
		specs[imp.Specifier] = struct{}{}
	}
	if _, ok := specs["./util"]; !ok {
		t.Errorf("missing ES import, got %v", result.Imports)
	}
	if _, ok := specs["fs"]; !ok {
		t.Errorf("missing require import, got %v", result.Imports)
	}
}

func TestJavaScriptAnalyzerInheritance(t *testing.T) {
	root := parseFixture(t, "javascript", jsFixture)
	a := NewJavaScriptAnalyzer(traversal.DefaultLimits(), nil)

	result := a.Analyze(root, "src/app.js")
	var found bool
	for _, rel := range result.Relationships {
		if rel.Kind == types.RelInherits && rel.To.Value == "Animal" {
			found = true
		}
	}
	if !found {
		t.Error("Dog extends Animal should yield an inherits relationship")
	}
}
