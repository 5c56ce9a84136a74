// Command cmsctl administers CMS accounts and permissions.
package main

func main() {
	Execute()
}
