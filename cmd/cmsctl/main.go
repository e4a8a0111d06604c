// Command cmsctl exports, imports and repairs a headless CMS store without
// going through the HTTP API.
package main

func main() {
	Execute()
}
