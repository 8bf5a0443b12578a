// Package interventions turns analysis results into Hammerspoon Lua
// scripts: an app blocker for work hours, a real-time death-loop
// breaker, and a Pomodoro-style focus mode.
package interventions

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	dberrors "loopwatch/internal/infrastructure/errors"
	"loopwatch/internal/infrastructure/logging"
	"loopwatch/internal/types"
)

// Generator writes Lua automation scripts into a directory the user can
// symlink or copy into ~/.hammerspoon.
type Generator struct {
	outputDir string
	logger    logging.Logger

	// now is swappable so tests get stable headers.
	now func() time.Time
}

// NewGenerator writes scripts under outputDir.
func NewGenerator(outputDir string, logger logging.Logger) *Generator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Generator{outputDir: outputDir, logger: logger, now: time.Now}
}

var appBlockerTmpl = template.Must(template.New("appBlocker").Parse(`-- loopwatch: app blocker
-- Kills distracting apps during work hours.
-- Generated: {{.Generated}}

local blockedApps = {
{{- range .Apps}}
    "{{.}}",
{{- end}}
}

local workStart = "{{.WorkStart}}"
local workEnd = "{{.WorkEnd}}"

function isWorkTime()
    local currentTime = os.date("%H:%M")
    return currentTime >= workStart and currentTime < workEnd
end

appWatcher = hs.application.watcher.new(function(appName, eventType, appObject)
    if eventType == hs.application.watcher.activated and isWorkTime() then
        for _, blocked in ipairs(blockedApps) do
            if appName == blocked then
                hs.notify.new({
                    title = "Blocked during work hours",
                    informativeText = appName .. " can wait until " .. workEnd,
                    soundName = "Hero"
                }):send()
                hs.timer.doAfter(1, function()
                    appObject:kill()
                end)
                print("Blocked: " .. appName .. " at " .. os.date("%H:%M:%S"))
            end
        end
    end
end)

appWatcher:start()
print("App blocker loaded, monitoring " .. #blockedApps .. " apps")
`))

var loopBreakerTmpl = template.Must(template.New("loopBreaker").Parse(`-- loopwatch: death loop breaker
-- Interrupts rapid back-and-forth switching between known loop pairs.
-- Generated: {{.Generated}}

local deathLoops = {
{{- range .Loops}}
    {app_a = "{{.AppA}}", app_b = "{{.AppB}}"},
{{- end}}
}

local switchThreshold = {{.ThresholdSeconds}}
local lastApp = nil
local lastSwitchTime = nil
local switchCount = {}

appWatcher = hs.application.watcher.new(function(appName, eventType, appObject)
    if eventType == hs.application.watcher.activated then
        local currentTime = os.time()

        if lastApp and lastSwitchTime then
            local timeSinceSwitch = currentTime - lastSwitchTime

            if timeSinceSwitch <= switchThreshold then
                local pattern = lastApp .. " -> " .. appName
                switchCount[pattern] = (switchCount[pattern] or 0) + 1

                for _, loop in ipairs(deathLoops) do
                    if (loop.app_a == lastApp and loop.app_b == appName) or
                       (loop.app_b == lastApp and loop.app_a == appName) then
                        if switchCount[pattern] >= 3 then
                            hs.alert.show("DEATH LOOP DETECTED\n\n" ..
                                "You're stuck in " .. pattern .. "\n" ..
                                "Take a 2-minute break!", 10)
                            hs.timer.doAfter(1, function()
                                hs.eventtap.keyStroke({"cmd"}, "h")
                                hs.application.launchOrFocus("Finder")
                            end)
                            switchCount[pattern] = 0
                            print("Death loop broken: " .. pattern .. " at " .. os.date("%H:%M:%S"))
                        end
                    end
                end
            else
                switchCount = {}
            end
        end

        lastApp = appName
        lastSwitchTime = currentTime
    end
end)

appWatcher:start()
print("Death loop breaker loaded, monitoring " .. #deathLoops .. " patterns")
`))

var focusModeTmpl = template.Must(template.New("focusMode").Parse(`-- loopwatch: focus mode
-- Hides everything but the allowed apps for one focus session.
-- Generated: {{.Generated}}

local allowedApps = {
{{- range .Apps}}
    "{{.}}",
{{- end}}
}

local focusDuration = {{.DurationMinutes}} * 60
local focusActive = false
local focusTimer = nil

function startFocus()
    focusActive = true
    local endTime = os.date("%H:%M", os.time() + focusDuration)
    hs.alert.show("FOCUS MODE ACTIVE\n\nSession ends at " .. endTime, 5)

    for _, app in ipairs(hs.application.runningApplications()) do
        local appName = app:name()
        local isAllowed = false
        for _, allowed in ipairs(allowedApps) do
            if string.lower(appName) == string.lower(allowed) then
                isAllowed = true
                break
            end
        end
        if not isAllowed then
            app:hide()
        end
    end

    focusTimer = hs.timer.doAfter(focusDuration, endFocus)
end

function endFocus()
    focusActive = false
    hs.alert.show("FOCUS SESSION COMPLETE\n\nTake a 5-minute break.", 10)
    hs.sound.getByName("Glass"):play()
    for _, app in ipairs(hs.application.runningApplications()) do
        app:unhide()
    end
end

hs.hotkey.bind({"cmd", "alt"}, "F", startFocus)
print("Focus mode loaded, press cmd+alt+F to start a session")
`))

// AppBlocker generates a work-hours blocker for the given app names.
func (g *Generator) AppBlocker(apps []string, workStart, workEnd int) (string, error) {
	if len(apps) == 0 {
		return "", dberrors.HandleValidationError("AppBlocker", "apps", "[]", "need at least one app to block")
	}
	data := struct {
		Generated string
		Apps      []string
		WorkStart string
		WorkEnd   string
	}{
		Generated: g.now().Format("2006-01-02 15:04"),
		Apps:      apps,
		WorkStart: fmt.Sprintf("%02d:00", workStart),
		WorkEnd:   fmt.Sprintf("%02d:00", workEnd),
	}
	return g.write("app_blocker.lua", appBlockerTmpl, data)
}

// LoopBreaker generates a real-time breaker for the given loops. Only the
// pairs are carried into Lua; the live threshold is looser than the
// analysis threshold because the watcher sees activations, not sessions.
func (g *Generator) LoopBreaker(loops []types.DeathLoop, thresholdSeconds int) (string, error) {
	if len(loops) == 0 {
		return "", dberrors.HandleValidationError("LoopBreaker", "loops", "[]", "need at least one loop to monitor")
	}
	if thresholdSeconds <= 0 {
		thresholdSeconds = 30
	}
	data := struct {
		Generated        string
		Loops            []types.DeathLoop
		ThresholdSeconds int
	}{
		Generated:        g.now().Format("2006-01-02 15:04"),
		Loops:            loops,
		ThresholdSeconds: thresholdSeconds,
	}
	return g.write("death_loop_breaker.lua", loopBreakerTmpl, data)
}

// FocusMode generates a session script allowing only the given apps.
func (g *Generator) FocusMode(allowedApps []string, durationMinutes int) (string, error) {
	if len(allowedApps) == 0 {
		return "", dberrors.HandleValidationError("FocusMode", "allowedApps", "[]", "need at least one allowed app")
	}
	if durationMinutes <= 0 {
		durationMinutes = 25
	}
	data := struct {
		Generated       string
		Apps            []string
		DurationMinutes int
	}{
		Generated:       g.now().Format("2006-01-02 15:04"),
		Apps:            allowedApps,
		DurationMinutes: durationMinutes,
	}
	return g.write("focus_mode.lua", focusModeTmpl, data)
}

func (g *Generator) write(name string, tmpl *template.Template, data interface{}) (string, error) {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return "", dberrors.New("WriteScript", fmt.Errorf("create output dir: %w", err), dberrors.ErrCodeWrite)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", dberrors.New("WriteScript", err, dberrors.ErrCodeInternal)
	}

	path := filepath.Join(g.outputDir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", dberrors.NewWithContext("WriteScript", err, dberrors.ErrCodeWrite,
			map[string]string{"path": path})
	}

	g.logger.Info("Generated automation script", "script", path)
	return path, nil
}
