package ansible

import (
	"fmt"
	"strings"

	"github.com/repograph/repograph-go/internal/extract"
	"github.com/repograph/repograph-go/internal/parser"
)

// extractPlaybook emits the Playbook, its Plays, and everything the
// plays contain.
func extractPlaybook(fi extract.FileInfo, result *parser.Result, fr *fileRecords) {
	doc, ok := result.Root.([]interface{})
	if !ok {
		return
	}

	description := ""
	if len(doc) > 0 {
		if play, ok := doc[0].(map[string]interface{}); ok {
			description, _ = play["name"].(string)
		}
	}

	fr.addEntity("Playbook", map[string]interface{}{
		"path":        fi.Path,
		"name":        fi.Path,
		"description": description,
	})
	fr.addEdge("IN_FILE",
		endpoint("Playbook", "path", fi.Path),
		endpoint("File", "path", fi.Path),
		nil)

	taskOrder := 0
	for playIndex, item := range doc {
		play, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		extractPlay(fi, play, playIndex, &taskOrder, fr)
	}
}

func extractPlay(fi extract.FileInfo, play map[string]interface{}, playIndex int, taskOrder *int, fr *fileRecords) {
	name, _ := play["name"].(string)
	if name == "" {
		name = fmt.Sprintf("<unnamed play %d>", playIndex+1)
	}
	hosts, _ := play["hosts"].(string)
	if hosts == "" {
		hosts = "all"
	}
	become, _ := play["become"].(bool)
	gatherFacts := true
	if v, ok := play["gather_facts"].(bool); ok {
		gatherFacts = v
	}

	fr.addEntity("Play", map[string]interface{}{
		"name":          name,
		"playbook_path": fi.Path,
		"order":         playIndex,
		"hosts":         hosts,
		"become":        become,
		"gather_facts":  gatherFacts,
	})
	playEP := endpoint("Play", "name", name)
	fr.addEdge("HAS_PLAY",
		endpoint("Playbook", "path", fi.Path),
		playEP,
		map[string]interface{}{"play_index": playIndex})
	fr.addEdge("IN_FILE", playEP, endpoint("File", "path", fi.Path), nil)

	for _, section := range []string{"pre_tasks", "tasks", "post_tasks"} {
		tasks, _ := play[section].([]interface{})
		for _, t := range tasks {
			task, ok := t.(map[string]interface{})
			if !ok {
				continue
			}
			taskName := extractTask(fi, task, *taskOrder, fr)
			fr.addEdge("HAS_TASK", playEP,
				endpoint("Task", "name", taskName),
				map[string]interface{}{"task_index": *taskOrder})
			*taskOrder++
		}
	}

	handlers, _ := play["handlers"].([]interface{})
	for _, h := range handlers {
		handler, ok := h.(map[string]interface{})
		if !ok {
			continue
		}
		handlerName := extractHandler(fi, handler, fr)
		if handlerName != "" {
			fr.addEdge("HAS_HANDLER", playEP, endpoint("Handler", "name", handlerName), nil)
		}
	}

	roles, _ := play["roles"].([]interface{})
	for _, r := range roles {
		extractPlayRole(playEP, r, fr)
	}

	varsFiles, _ := play["vars_files"].([]interface{})
	for _, vf := range varsFiles {
		path, ok := vf.(string)
		if !ok {
			continue
		}
		fr.addEntity("VarsFile", map[string]interface{}{
			"path":  path,
			"scope": "play",
		})
		fr.addEdge("LOADS_VARS", playEP, endpoint("VarsFile", "path", path), nil)
	}

	if vars, ok := play["vars"].(map[string]interface{}); ok {
		for varName, value := range vars {
			fr.addEntity("Variable", map[string]interface{}{
				"name":      varName,
				"scope":     "play",
				"file_path": fi.Path,
				"value":     jsonValue(value, maxVariableValue),
			})
			fr.addEdge("DEFINES_VAR", playEP, endpoint("Variable", "name", varName), nil)
		}
	}
}

// extractTask emits one Task node plus its variable, template, and
// handler relationships. Returns the task's resolved name.
func extractTask(fi extract.FileInfo, task map[string]interface{}, order int, fr *fileRecords) string {
	name, _ := task["name"].(string)
	if name == "" {
		name = fmt.Sprintf("<unnamed task %d>", order+1)
	}
	module := parser.TaskModule(task)
	if module == "" {
		module = "unknown"
	}

	props := map[string]interface{}{
		"name":      name,
		"file_path": fi.Path,
		"order":     order,
		"module":    module,
	}
	if args, ok := task[module]; ok && module != "unknown" {
		props["args"] = jsonValue(args, maxVariableValue)
	}
	if when, ok := task["when"]; ok {
		props["when"] = jsonValue(when, maxVariableValue)
	}
	if loop, ok := task["loop"]; ok {
		props["loop"] = jsonValue(loop, maxVariableValue)
	} else if items, ok := task["with_items"]; ok {
		props["loop"] = jsonValue(items, maxVariableValue)
	}
	if register, ok := task["register"].(string); ok {
		props["register"] = register
	}
	if become, ok := task["become"].(bool); ok {
		props["become"] = become
	}
	fr.addEntity("Task", props)

	taskEP := endpoint("Task", "name", name)
	fr.addEdge("IN_FILE", taskEP, endpoint("File", "path", fi.Path), nil)

	// register creates a play-scoped variable.
	if register, ok := task["register"].(string); ok && register != "" {
		fr.addEntity("Variable", map[string]interface{}{
			"name":      register,
			"scope":     "play",
			"file_path": fi.Path,
		})
		fr.addEdge("DEFINES_VAR", taskEP, endpoint("Variable", "name", register), nil)
	}

	// notify targets merge with the concrete handler by composite key
	// once the handler's own file is extracted.
	for _, notified := range notifyTargets(task["notify"]) {
		fr.addEntity("Handler", map[string]interface{}{
			"name":        notified,
			"file_path":   fi.Path,
			"module":      "unknown",
			"line_number": 0,
		})
		fr.addEdge("NOTIFIES", taskEP, endpoint("Handler", "name", notified),
			map[string]interface{}{"notification_name": notified})
	}

	// template/copy with a .j2 source uses a Template.
	if module == "template" || module == "copy" {
		if args, ok := task[module].(map[string]interface{}); ok {
			if src, ok := args["src"].(string); ok && strings.HasSuffix(src, ".j2") {
				fr.addEntity("Template", map[string]interface{}{"path": src})
				fr.addEdge("USES_TEMPLATE", taskEP, endpoint("Template", "path", src),
					map[string]interface{}{"parameter_name": "src"})
			}
		}
	}
	return name
}

func notifyTargets(notify interface{}) []string {
	switch v := notify.(type) {
	case string:
		return []string{v}
	case []interface{}:
		var names []string
		for _, n := range v {
			if s, ok := n.(string); ok {
				names = append(names, s)
			}
		}
		return names
	default:
		return nil
	}
}

func extractHandler(fi extract.FileInfo, handler map[string]interface{}, fr *fileRecords) string {
	name, _ := handler["name"].(string)
	if name == "" {
		return ""
	}
	module := parser.TaskModule(handler)
	if module == "" {
		module = "unknown"
	}
	fr.addEntity("Handler", map[string]interface{}{
		"name":        name,
		"file_path":   fi.Path,
		"module":      module,
		"line_number": 0,
	})
	fr.addEdge("IN_FILE",
		endpoint("Handler", "name", name),
		endpoint("File", "path", fi.Path),
		nil)
	return name
}

func extractPlayRole(playEP extract.Endpoint, role interface{}, fr *fileRecords) {
	var name string
	var params map[string]interface{}

	switch v := role.(type) {
	case string:
		name = v
	case map[string]interface{}:
		if n, ok := v["role"].(string); ok {
			name = n
		} else if n, ok := v["name"].(string); ok {
			name = n
		}
		params = v
	}
	if name == "" {
		return
	}

	fr.addEntity("Role", map[string]interface{}{
		"name":   name,
		"source": "playbook",
	})
	edgeProps := map[string]interface{}{}
	if len(params) > 1 {
		edgeProps["role_params"] = jsonValue(params, maxVariableValue)
	}
	fr.addEdge("USES_ROLE", playEP, endpoint("Role", "name", name), edgeProps)
}

// extractTaskList handles bare task files (roles' tasks/ and handlers/
// trees). Handler files emit Handler nodes, everything else Task nodes.
func extractTaskList(fi extract.FileInfo, result *parser.Result, fr *fileRecords) {
	doc, ok := result.Root.([]interface{})
	if !ok {
		return
	}

	isHandlerFile := strings.Contains(fi.Path, "handlers/")

	for order, item := range doc {
		task, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if isHandlerFile {
			extractHandler(fi, task, fr)
			continue
		}
		extractTask(fi, task, order, fr)
	}
}
